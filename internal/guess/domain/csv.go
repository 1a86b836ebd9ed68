package domain

import (
	"encoding/csv"
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
)

// CSVHeader names the ledger columns, one per RoundRecord field.
var CSVHeader = []string{"human_guess", "draw", "human_result", "opponent_guess", "opponent_result"}

// ExportCSV renders records as CSV with a header row followed by one row per
// round in ledger order. An empty ledger yields the header only.
func ExportCSV(records []RoundRecord) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(CSVHeader); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for i, r := range records {
		row := []string{
			r.HumanGuess.String(),
			r.Draw.String(),
			r.HumanResult.String(),
			r.OpponentGuess.String(),
			r.OpponentResult.String(),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv round %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return b.String(), nil
}

// ParseCSV reconstructs records from ExportCSV output. Blank input is an
// empty ledger.
func ParseCSV(text string) ([]RoundRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = len(CSVHeader)
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCSVMalformed, ErrCSVMalformed.Message, err)
	}
	if !slices.Equal(rows[0], CSVHeader) {
		return nil, apperrors.WithMetadata(apperrors.CodeCSVMalformed, "unexpected ledger csv header", map[string]string{
			"header": strings.Join(rows[0], ","),
		})
	}

	records := make([]RoundRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		record, err := parseRow(row)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeCSVMalformed, fmt.Sprintf("ledger csv round %d", i+1), err)
		}
		records = append(records, record)
	}
	return records, nil
}

func parseRow(row []string) (RoundRecord, error) {
	var (
		record RoundRecord
		err    error
	)
	if record.HumanGuess, err = ParseOutcome(row[0]); err != nil {
		return RoundRecord{}, err
	}
	if record.Draw, err = ParseOutcome(row[1]); err != nil {
		return RoundRecord{}, err
	}
	if record.HumanResult, err = ParseResult(row[2]); err != nil {
		return RoundRecord{}, err
	}
	if record.OpponentGuess, err = ParseOutcome(row[3]); err != nil {
		return RoundRecord{}, err
	}
	if record.OpponentResult, err = ParseResult(row[4]); err != nil {
		return RoundRecord{}, err
	}
	if err := record.Validate(); err != nil {
		return RoundRecord{}, err
	}
	return record, nil
}
