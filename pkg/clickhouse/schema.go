package clickhouse

import "fmt"

// SignalsTable is the unqualified name of the signal mirror table.
const SignalsTable = "signals"

// SignalSchema returns the DDL for the signal mirror. Rows are versioned so a
// re-run of the same symbol and day collapses to the newest copy under FINAL.
func SignalSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    symbol            LowCardinality(String),
    date              Date,
    close             Float64,
    daily_return      Nullable(Float64),
    sma_10            Nullable(Float64),
    sma_20            Nullable(Float64),
    sma_50            Nullable(Float64),
    volatility_20     Nullable(Float64),
    market_regime     LowCardinality(String),
    signal_label      LowCardinality(String),
    signal_strength   LowCardinality(String),
    confidence_score  UInt8,
    expected_move_pct Nullable(Float64),
    risk_level        LowCardinality(String),
    run_id            String,
    version           UInt64
) ENGINE = ReplacingMergeTree(version)
PARTITION BY toYYYYMM(date)
ORDER BY (symbol, date)`, database, SignalsTable),
	}
}
