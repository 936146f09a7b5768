package importer

import (
	"io"

	"github.com/MrJamesThe3rd/lexledger/internal/expense"
)

// Importer turns an uploaded ledger file into expense rows ready for
// expense.Service.ImportBatch.
type Importer interface {
	Parse(r io.Reader) ([]expense.CreateParams, error)
}
