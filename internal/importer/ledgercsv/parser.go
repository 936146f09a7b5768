package ledgercsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/width"

	enc "github.com/MrJamesThe3rd/lexledger/internal/encoding"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
)

var ErrUnknownLayout = errors.New("no matching ledger layout")

// Parser reads ledger CSV exports and produces expense params.
// It auto-detects the layout by matching column headers against its
// profiles, trying each profile's delimiter in turn.
type Parser struct {
	profiles []Profile
}

// NewParser returns a parser that tries extra before the built-in layouts.
func NewParser(extra ...Profile) *Parser {
	profiles := make([]Profile, 0, len(extra)+len(builtin))
	profiles = append(profiles, extra...)
	profiles = append(profiles, builtin...)

	return &Parser{profiles: profiles}
}

func (p *Parser) Parse(r io.Reader) ([]expense.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	for _, delim := range p.delimiters() {
		rows, err := readRows(data, delim)
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		profile, cols, headerIdx := p.detectProfile(rows, delim)
		if profile != nil {
			return parseRows(profile, cols, rows[headerIdx+1:], headerIdx)
		}
	}

	return nil, ErrUnknownLayout
}

func (p *Parser) delimiters() []rune {
	var delims []rune

	for i := range p.profiles {
		if d := p.profiles[i].delimiter(); !slices.Contains(delims, d) {
			delims = append(delims, d)
		}
	}

	return delims
}

func readRows(data []byte, delim rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return reader.ReadAll()
}

// colIndex maps folded column names to their index in the row.
type colIndex map[string]int

func headerName(s string) string {
	return width.Fold.String(strings.TrimSpace(s))
}

// of returns the index of the named column, or -1 when it is absent.
func (c colIndex) of(name string) int {
	if name == "" {
		return -1
	}

	i, ok := c[headerName(name)]
	if !ok {
		return -1
	}

	return i
}

// detectProfile scans rows for a header that matches a profile using delim.
// Returns the matched profile, column index map, and header row index.
func (p *Parser) detectProfile(rows [][]string, delim rune) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := headerName(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range p.profiles {
			profile := &p.profiles[i]
			if profile.delimiter() == delim && matchesProfile(profile, cols) {
				return profile, cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if cols.of(name) < 0 {
			return false
		}
	}

	return true
}

// parseRows extracts expenses from data rows using the matched profile.
// headerIdx is the 0-based index of the header in the file, for error messages.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerIdx int) ([]expense.CreateParams, error) {
	var params []expense.CreateParams

	for i, row := range rows {
		rowNum := headerIdx + i + 2 // 1-based, skipping header

		// Rows without a date are subtotals, footers or blank lines.
		date, ok := p.parseDate(cellValue(row, cols.of(p.DateCol)))
		if !ok {
			continue
		}

		amount, dir, err := parseRowAmount(p, cols, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		if amount.IsZero() {
			continue
		}

		desc := cellValue(row, cols.of(p.DescCol))
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		category := cellValue(row, cols.of(p.CategoryCol))
		if category == "" {
			category = p.DefaultCategory
		}

		if category == "" {
			return nil, fmt.Errorf("row %d: missing category", rowNum)
		}

		var caseID *uuid.UUID

		if s := cellValue(row, cols.of(p.CaseCol)); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid case id %q: %w", rowNum, s, err)
			}

			caseID = &id
		}

		params = append(params, expense.CreateParams{
			Direction:   dir,
			Amount:      amount,
			Date:        date,
			Category:    category,
			CaseID:      caseID,
			Description: desc,
			Memo:        cellValue(row, cols.of(p.MemoCol)),
		})
	}

	return params, nil
}

// parseRowAmount returns a positive amount and its direction. A zero amount
// means the row carries no money and should be skipped.
func parseRowAmount(p *Profile, cols colIndex, row []string) (decimal.Decimal, expense.Direction, error) {
	if !p.split() {
		d, err := amountCell(row, cols.of(p.AmountCol))
		if err != nil {
			return decimal.Zero, "", err
		}

		if d.IsNegative() {
			return d.Neg(), expense.DirectionIncome, nil
		}

		return d, expense.DirectionExpense, nil
	}

	out, err := amountCell(row, cols.of(p.ExpenseCol))
	if err != nil {
		return decimal.Zero, "", err
	}

	if !out.IsZero() {
		return out.Abs(), expense.DirectionExpense, nil
	}

	in, err := amountCell(row, cols.of(p.IncomeCol))
	if err != nil {
		return decimal.Zero, "", err
	}

	return in.Abs(), expense.DirectionIncome, nil
}

// amountCell parses the amount at idx. Empty cells read as zero.
func amountCell(row []string, idx int) (decimal.Decimal, error) {
	s := cellValue(row, idx)
	if s == "" {
		return decimal.Zero, nil
	}

	d, err := parseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	return d, nil
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
