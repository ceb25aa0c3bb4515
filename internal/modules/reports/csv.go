package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/akritis/vigil/internal/domain"
)

// ProjectionCSV flattens the projection series into period,value rows.
func (s *Service) ProjectionCSV(result *domain.DiagnosticsResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"period", "projected_value"}); err != nil {
		return nil, fmt.Errorf("failed to write projection CSV: %w", err)
	}
	for _, point := range result.Projection {
		row := []string{
			strconv.Itoa(point.PeriodIndex),
			strconv.FormatFloat(point.ProjectedValue, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write projection CSV: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write projection CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// ActionsCSV flattens the action plan. Guidance rows keep an empty amount.
func (s *Service) ActionsCSV(result *domain.DiagnosticsResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"kind", "subject", "amount", "rationale"}); err != nil {
		return nil, fmt.Errorf("failed to write actions CSV: %w", err)
	}
	for _, action := range result.Actions {
		amount := ""
		if action.Amount != nil {
			amount = strconv.FormatFloat(*action.Amount, 'f', 2, 64)
		}
		row := []string{string(action.Kind), action.Subject, amount, action.Rationale}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write actions CSV: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write actions CSV: %w", err)
	}
	return buf.Bytes(), nil
}
