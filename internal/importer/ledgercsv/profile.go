package ledgercsv

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Profile describes the column layout of a ledger CSV export.
//
// Amounts come either from one signed column (Amount) or from separate
// expense and income columns. Case and Memo columns are optional; when a
// layout has no category column every row gets DefaultCategory.
type Profile struct {
	Name            string   `yaml:"name"`
	Delimiter       string   `yaml:"delimiter"`
	DateCol         string   `yaml:"date"`
	DateLayouts     []string `yaml:"date_layouts"`
	DescCol         string   `yaml:"description"`
	CategoryCol     string   `yaml:"category"`
	DefaultCategory string   `yaml:"default_category"`
	CaseCol         string   `yaml:"case"`
	MemoCol         string   `yaml:"memo"`
	AmountCol       string   `yaml:"amount"`
	ExpenseCol      string   `yaml:"expense"`
	IncomeCol       string   `yaml:"income"`
}

var defaultDateLayouts = []string{
	"2006/1/2",
	"2006-1-2",
	"2006.1.2",
	"2006年1月2日",
}

func (p *Profile) split() bool {
	return p.AmountCol == ""
}

func (p *Profile) delimiter() rune {
	if p.Delimiter == "" {
		return ','
	}

	r, _ := utf8.DecodeRuneInString(p.Delimiter)

	return r
}

func (p *Profile) dateLayouts() []string {
	if len(p.DateLayouts) == 0 {
		return defaultDateLayouts
	}

	return p.DateLayouts
}

func (p *Profile) parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range p.dateLayouts() {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// requiredCols returns the column names that must be present for this profile to match.
func (p *Profile) requiredCols() []string {
	cols := []string{p.DateCol, p.DescCol}

	if p.CategoryCol != "" {
		cols = append(cols, p.CategoryCol)
	}

	if p.split() {
		return append(cols, p.ExpenseCol, p.IncomeCol)
	}

	return append(cols, p.AmountCol)
}

func (p *Profile) validate() error {
	switch {
	case p.Name == "":
		return errors.New("name is required")
	case p.DateCol == "" || p.DescCol == "":
		return errors.New("date and description columns are required")
	case p.CategoryCol == "" && p.DefaultCategory == "":
		return errors.New("either a category column or a default category is required")
	case p.split() && (p.ExpenseCol == "" || p.IncomeCol == ""):
		return errors.New("either an amount column or both expense and income columns are required")
	case utf8.RuneCountInString(p.Delimiter) > 1:
		return fmt.Errorf("delimiter %q must be a single character", p.Delimiter)
	}

	return nil
}

// builtin is the ordered list of layouts tried during auto-detection.
// More specific profiles come first to avoid false matches.
var builtin = []Profile{
	{
		Name:        "出納帳",
		DateCol:     "日付",
		DescCol:     "摘要",
		CategoryCol: "科目",
		CaseCol:     "案件番号",
		MemoCol:     "備考",
		ExpenseCol:  "支出",
		IncomeCol:   "収入",
	},
	{
		Name:        "経費明細",
		DateCol:     "日付",
		DescCol:     "摘要",
		CategoryCol: "科目",
		CaseCol:     "案件番号",
		MemoCol:     "備考",
		AmountCol:   "金額",
	},
	{
		Name:        "expenses",
		DateCol:     "Date",
		DescCol:     "Description",
		CategoryCol: "Category",
		CaseCol:     "Case",
		MemoCol:     "Memo",
		AmountCol:   "Amount",
	},
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// ReadProfiles decodes a YAML document of the form
//
//	profiles:
//	  - name: bank-export
//	    delimiter: ";"
//	    date: Booking date
//	    date_layouts: ["02.01.2006"]
//	    description: Text
//	    amount: Amount
//	    default_category: 雑費
func ReadProfiles(r io.Reader) ([]Profile, error) {
	var f profileFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}

		return nil, fmt.Errorf("decoding profiles: %w", err)
	}

	for i := range f.Profiles {
		if err := f.Profiles[i].validate(); err != nil {
			return nil, fmt.Errorf("profile %d (%q): %w", i+1, f.Profiles[i].Name, err)
		}
	}

	return f.Profiles, nil
}

func LoadProfiles(path string) ([]Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening profiles: %w", err)
	}
	defer f.Close()

	return ReadProfiles(f)
}
