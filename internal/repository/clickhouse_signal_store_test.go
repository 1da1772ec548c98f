package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketRegime/internal/domain/models"
	applogger "MarketRegime/pkg/logger"
)

func newMockStore(t *testing.T) (*CHSignalStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := newCHSignalStore(db, "market.signals", applogger.NewNop())
	s.now = func() time.Time { return time.Unix(0, 1700000000000000000) }
	return s, mock
}

func signalRow(d time.Time, conf int, move *float64) models.SignalRow {
	return models.SignalRow{
		RegimeRow: models.RegimeRow{
			FeatureRow: models.FeatureRow{
				PriceRow: models.PriceRow{Date: d, Open: 1, High: 1, Low: 1, Close: 100},
				SMA10:    models.Float(99),
			},
			MarketRegime: models.RegimeBullish,
		},
		SignalLabel:     models.SignalBullish,
		SignalStrength:  models.StrengthStrong,
		ConfidenceScore: conf,
		ExpectedMovePct: move,
		RiskLevel:       models.RiskLow,
	}
}

func TestCHSignalStore_ReplaceSignals(t *testing.T) {
	s, mock := newMockStore(t)
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO market\.signals .* VALUES \(.*\),\(.*\)`).
		WithArgs(
			"TCS.NS", d, 100.0, nil, 99.0, nil, nil, nil, "Bullish", "Bullish", "Strong", 85, 1.5, "Low", "run-1", 1700000000000000000,
			"TCS.NS", d.AddDate(0, 0, 1), 100.0, nil, 99.0, nil, nil, nil, "Bullish", "Bullish", "Strong", 70, nil, "Low", "run-1", 1700000000000000000,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := s.ReplaceSignals(context.Background(), "run-1", "TCS.NS", []models.SignalRow{
		signalRow(d, 85, models.Float(1.5)),
		signalRow(d.AddDate(0, 0, 1), 70, nil),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSignalStore_ReplaceSignalsEmptyIsNoop(t *testing.T) {
	s, mock := newMockStore(t)
	require.NoError(t, s.ReplaceSignals(context.Background(), "run-1", "TCS.NS", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSignalStore_ReplaceSignalsError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO market\.signals`).WillReturnError(errors.New("boom"))

	err := s.ReplaceSignals(context.Background(), "run-1", "TCS.NS", []models.SignalRow{
		signalRow(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 50, nil),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TCS.NS")
}

func TestCHSignalStore_LatestSignals(t *testing.T) {
	s, mock := newMockStore(t)
	d := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"run_id", "symbol", "date", "close", "market_regime", "signal_label",
		"signal_strength", "confidence_score", "expected_move_pct", "risk_level", "version"}).
		AddRow("run-2", "INFY.NS", d, 1500.5, "Bullish", "Bullish", "Strong", 85, 2.1, "Low", 1700000000000000000).
		AddRow("run-2", "TCS.NS", d, 3500.0, "Sideways", "Neutral", "Weak", 50, nil, "Medium", 1700000000000000000)
	mock.ExpectQuery(`FROM market\.signals FINAL`).WithArgs(10).WillReturnRows(rows)

	got, err := s.LatestSignals(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "INFY.NS", got[0].Symbol)
	assert.Equal(t, models.SignalBullish, got[0].SignalLabel)
	assert.Equal(t, 85, got[0].ConfidenceScore)
	require.NotNil(t, got[0].ExpectedMovePct)
	assert.InDelta(t, 2.1, *got[0].ExpectedMovePct, 1e-9)
	assert.Nil(t, got[1].ExpectedMovePct)
	assert.Equal(t, models.RiskMedium, got[1].RiskLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}
