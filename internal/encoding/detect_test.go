package encoding_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"

	"github.com/MrJamesThe3rd/lexledger/internal/encoding"
)

const ledger = "日付,金額,科目,摘要\n" +
	"2024/01/15,1000,会議費,依頼者との打ち合わせのための会議室の利用料です\n" +
	"2024/01/16,\"12,800\",交通費,東京地方裁判所への出張に伴う新幹線の乗車券を購入しました\n" +
	"2024/01/17,3500,通信費,事務所の電話とインターネットの月額料金について支払いをしました\n"

func readAll(t *testing.T, input []byte) string {
	t.Helper()

	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(got)
}

func TestNewUTF8Reader_UTF8Passthrough(t *testing.T) {
	assert.Equal(t, ledger, readAll(t, []byte(ledger)))
}

func TestNewUTF8Reader_UTF8BOM(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, ledger...)

	assert.Equal(t, ledger, readAll(t, input))
}

func TestNewUTF8Reader_UTF8SplitAtPeekBoundary(t *testing.T) {
	// 4095 ASCII bytes put the first byte of a three-byte rune at the end
	// of the peek window.
	input := strings.Repeat("a", 4095) + "日付"

	assert.Equal(t, input, readAll(t, []byte(input)))
}

func TestNewUTF8Reader_Legacy(t *testing.T) {
	type testCase struct {
		name   string
		encode func(string) (string, error)
		text   string
	}

	tests := []testCase{
		{
			name:   "ShiftJIS",
			encode: japanese.ShiftJIS.NewEncoder().String,
			text:   ledger,
		},
		{
			name:   "ISO2022JP",
			encode: japanese.ISO2022JP.NewEncoder().String,
			text:   ledger,
		},
		{
			name:   "UTF16LE",
			encode: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String,
			text:   ledger,
		},
		{
			name:   "Windows1252",
			encode: charmap.Windows1252.NewEncoder().String,
			text: "Date,Amount,Category,Description\n" +
				"2024-01-15,1000,Café,Réunion préparatoire avec le client à la cour d'appel\n" +
				"2024-01-16,250,Frais,Déplacement à l'étude et dépôt des pièces à la préfecture\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := tt.encode(tt.text)
			require.NoError(t, err)

			assert.Equal(t, tt.text, readAll(t, []byte(encoded)))
		})
	}
}
