package importer

import (
	"fmt"
	"io"

	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/importer/ledgercsv"
)

type Service struct {
	csv Importer
}

// NewService builds the importer with the built-in layouts plus those in
// profilesFile, when one is configured.
func NewService(profilesFile string) (*Service, error) {
	var extra []ledgercsv.Profile

	if profilesFile != "" {
		loaded, err := ledgercsv.LoadProfiles(profilesFile)
		if err != nil {
			return nil, fmt.Errorf("loading import profiles: %w", err)
		}

		extra = loaded
	}

	return &Service{csv: ledgercsv.NewParser(extra...)}, nil
}

func (s *Service) Import(r io.Reader) ([]expense.CreateParams, error) {
	params, err := s.csv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing ledger: %w", err)
	}

	return params, nil
}
