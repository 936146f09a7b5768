package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const peekSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}

	// ESC $ B and ESC $ @ switch ISO-2022-JP into JIS X 0208.
	iso2022JPEscapes = [][]byte{{0x1B, '$', 'B'}, {0x1B, '$', '@'}}
)

// decoders maps chardet charset names onto the decoders we support.
var decoders = map[string]encoding.Encoding{
	"Shift_JIS":    japanese.ShiftJIS,
	"EUC-JP":       japanese.EUCJP,
	"ISO-2022-JP":  japanese.ISO2022JP,
	"ISO-8859-1":   charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"ISO-8859-9":   charmap.ISO8859_9,
}

// NewUTF8Reader detects the encoding of the input and returns a reader
// that decodes the content to UTF-8.
//
// Detection order:
//  1. Check for BOM (UTF-8 BOM is stripped; UTF-16 LE/BE is decoded)
//  2. ISO-2022-JP escape sequences, which are otherwise plain ASCII
//  3. Validate if the content is valid UTF-8 and return as-is
//  4. Heuristic detection via chardet, best supported candidate first
//  5. Fallback to Shift_JIS, the usual encoding of Japanese spreadsheet exports
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, peekSize)

	buf, err := br.Peek(peekSize)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peek: %w", err)
	}

	if bytes.HasPrefix(buf, bomUTF8) {
		_, _ = br.Discard(len(bomUTF8))
		return br, nil
	}

	if bytes.HasPrefix(buf, bomUTF16LE) {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(br, decoder), nil
	}

	if bytes.HasPrefix(buf, bomUTF16BE) {
		decoder := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(br, decoder), nil
	}

	for _, esc := range iso2022JPEscapes {
		if bytes.Contains(buf, esc) {
			return transform.NewReader(br, japanese.ISO2022JP.NewDecoder()), nil
		}
	}

	if validUTF8(buf, len(buf) == peekSize) {
		return br, nil
	}

	return transform.NewReader(br, Detect(buf).NewDecoder()), nil
}

// Detect guesses the legacy encoding of b. It never returns nil.
func Detect(b []byte) encoding.Encoding {
	results, err := chardet.NewTextDetector().DetectAll(b)
	if err == nil {
		for _, res := range results {
			if enc, ok := decoders[res.Charset]; ok {
				return enc
			}
		}
	}

	return japanese.ShiftJIS
}

// validUTF8 reports whether b is UTF-8. When b was cut from a longer
// stream, a multi-byte sequence split at the end is tolerated.
func validUTF8(b []byte, truncated bool) bool {
	if utf8.Valid(b) {
		return true
	}

	if !truncated {
		return false
	}

	for i := 1; i < utf8.UTFMax && i < len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			return utf8.Valid(b[:len(b)-i])
		}
	}

	return false
}
