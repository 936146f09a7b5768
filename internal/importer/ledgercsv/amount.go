package ledgercsv

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"
)

var amountNoise = strings.NewReplacer("¥", "", "円", "", ",", "", " ", "")

// parseAmount parses a ledger amount. Currency marks and thousands
// separators are dropped and full-width digits are folded, so "¥12,800",
// "3500円" and "１，０００" all parse. Amounts in parentheses or prefixed
// with △ or ▲ are negative.
func parseAmount(s string) (decimal.Decimal, error) {
	clean := amountNoise.Replace(width.Fold.String(strings.TrimSpace(s)))

	negative := false

	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		negative = true
		clean = clean[1 : len(clean)-1]
	}

	for _, mark := range []string{"△", "▲"} {
		if rest, ok := strings.CutPrefix(clean, mark); ok {
			negative = true
			clean = rest
		}
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, err
	}

	if negative {
		return d.Neg(), nil
	}

	return d, nil
}
