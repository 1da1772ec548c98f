package validation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedRow marks a price row that must not enter the pipeline.
var ErrMalformedRow = errors.New("malformed price row")

// RowError locates a malformed row.
type RowError struct {
	Index  int
	Field  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s %s", e.Index, e.Field, e.Reason)
}

func (e *RowError) Unwrap() error { return ErrMalformedRow }

var validate = validator.New()

// NormalizePriceSeries truncates dates to the UTC day and sorts ascending.
// It never drops rows, so duplicates survive for ValidatePriceSeries to reject.
func NormalizePriceSeries(rows []models.PriceRow) []models.PriceRow {
	out := make([]models.PriceRow, len(rows))
	for i, r := range rows {
		r.Date = models.Day(r.Date)
		out[i] = r
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ValidatePriceSeries checks a date-ordered series. It returns ErrEmptySeries
// for no rows and a *RowError wrapping ErrMalformedRow for the first bad row.
func ValidatePriceSeries(rows []models.PriceRow) error {
	if len(rows) == 0 {
		return domrepo.ErrEmptySeries
	}
	for i, r := range rows {
		if err := validateRow(i, r); err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		prev := rows[i-1].Date
		switch {
		case r.Date.Equal(prev):
			return &RowError{Index: i, Field: "date", Reason: "duplicates previous row"}
		case r.Date.Before(prev):
			return &RowError{Index: i, Field: "date", Reason: "is out of order"}
		}
	}
	return nil
}

func validateRow(i int, r models.PriceRow) error {
	if r.Date.IsZero() {
		return &RowError{Index: i, Field: "date", Reason: "is missing"}
	}
	fields := []struct {
		name string
		v    float64
	}{
		{"open", r.Open}, {"high", r.High}, {"low", r.Low}, {"close", r.Close}, {"volume", r.Volume},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &RowError{Index: i, Field: f.name, Reason: "is not finite"}
		}
	}
	if err := validate.Struct(r); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			return &RowError{Index: i, Field: fe.Field(), Reason: fmt.Sprintf("failed %s=%s (got %v)", fe.Tag(), fe.Param(), fe.Value())}
		}
		return &RowError{Index: i, Field: "row", Reason: err.Error()}
	}
	return nil
}
