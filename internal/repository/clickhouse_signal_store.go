package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	pkgch "MarketRegime/pkg/clickhouse"
	applogger "MarketRegime/pkg/logger"
)

const insertChunk = 2000

// CHSignalStore mirrors signal series into a ReplacingMergeTree table.
// Each write carries a version, so re-running a day supersedes the older copy.
type CHSignalStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

var _ domrepo.SignalMirror = (*CHSignalStore)(nil)

func NewCHSignalStore(ch *pkgch.Client, l *applogger.Logger) *CHSignalStore {
	return newCHSignalStore(ch.DB(), ch.Database()+"."+pkgch.SignalsTable, l)
}

func newCHSignalStore(db *sql.DB, table string, l *applogger.Logger) *CHSignalStore {
	return &CHSignalStore{db: db, table: table, l: l, now: time.Now}
}

// ReplaceSignals writes the whole series for symbol under one version.
func (s *CHSignalStore) ReplaceSignals(ctx context.Context, runID, symbol string, rows []models.SignalRow) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	version := uint64(s.now().UnixNano())

	for lo := 0; lo < len(rows); lo += insertChunk {
		hi := lo + insertChunk
		if hi > len(rows) {
			hi = len(rows)
		}

		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*16)
		for _, r := range rows[lo:hi] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				symbol,
				r.Date,
				r.Close,
				nullable(r.DailyReturn),
				nullable(r.SMA10),
				nullable(r.SMA20),
				nullable(r.SMA50),
				nullable(r.Volatility20),
				string(r.MarketRegime),
				string(r.SignalLabel),
				string(r.SignalStrength),
				uint8(r.ConfidenceScore),
				nullable(r.ExpectedMovePct),
				string(r.RiskLevel),
				runID,
				version,
			)
		}

		q := fmt.Sprintf(`INSERT INTO %s (symbol, date, close, daily_return, sma_10, sma_20, sma_50, volatility_20,
    market_regime, signal_label, signal_strength, confidence_score, expected_move_pct, risk_level, run_id, version) VALUES %s`,
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse replace_signals insert error",
					applogger.Symbol(symbol),
					applogger.String("run_id", runID),
					applogger.Int("rows", hi-lo),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("insert signals %s: %w", symbol, err)
		}
	}

	if s.l != nil {
		s.l.Debug("clickhouse replace_signals ok",
			applogger.Symbol(symbol),
			applogger.String("run_id", runID),
			applogger.Int("rows", len(rows)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// LatestSignals returns the newest row per symbol, most confident first.
func (s *CHSignalStore) LatestSignals(ctx context.Context, limit int) ([]models.SignalEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`
        SELECT run_id, symbol, date, close, market_regime, signal_label, signal_strength,
               confidence_score, expected_move_pct, risk_level, version
        FROM (
            SELECT * FROM %s FINAL
            ORDER BY symbol, date DESC
            LIMIT 1 BY symbol
        )
        ORDER BY confidence_score DESC, symbol ASC
        LIMIT ?
    `, s.table)

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_signals query error", applogger.Int("limit", limit), applogger.Error(err))
		}
		return nil, fmt.Errorf("latest signals: %w", err)
	}
	defer rows.Close()

	out := make([]models.SignalEvent, 0, limit)
	for rows.Next() {
		var (
			ev             models.SignalEvent
			regime, label  string
			strength, risk string
			confidence     int
			move           sql.NullFloat64
			version        uint64
		)
		if err := rows.Scan(&ev.RunID, &ev.Symbol, &ev.Date, &ev.Close, &regime, &label, &strength,
			&confidence, &move, &risk, &version); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		ev.MarketRegime = models.Regime(regime)
		ev.SignalLabel = models.SignalLabel(label)
		ev.SignalStrength = models.Strength(strength)
		ev.ConfidenceScore = confidence
		ev.RiskLevel = models.RiskLevel(risk)
		if move.Valid {
			ev.ExpectedMovePct = models.Float(move.Float64)
		}
		ev.EmittedAt = time.Unix(0, int64(version)).UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
