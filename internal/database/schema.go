package database

// SQL schemas for the audit tables

const (
	// PredictionLogTableSQL creates the prediction_log table
	PredictionLogTableSQL = `
		CREATE TABLE IF NOT EXISTS prediction_log (
			id UUID,
			timestamp DateTime64(3),
			frame_id String,
			class LowCardinality(String),
			confidence Float64,
			x Float64,
			y Float64,
			width Float64,
			height Float64
		) ENGINE = MergeTree()
		ORDER BY (class, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// DisposeLogTableSQL creates the dispose_log table
	DisposeLogTableSQL = `
		CREATE TABLE IF NOT EXISTS dispose_log (
			id UUID,
			timestamp DateTime64(3),
			bin_type LowCardinality(String)
		) ENGINE = MergeTree()
		ORDER BY (bin_type, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// BinLevelsTableSQL creates the bin_levels table, one row per sensor read
	BinLevelsTableSQL = `
		CREATE TABLE IF NOT EXISTS bin_levels (
			id UUID,
			timestamp DateTime64(3),
			biodegradable Float64,
			non_biodegradable Float64,
			recyclable Float64,
			hazardous Float64
		) ENGINE = MergeTree()
		ORDER BY timestamp
		PARTITION BY toYYYYMM(timestamp)
	`

	// AlertLogTableSQL creates the alert_log table
	AlertLogTableSQL = `
		CREATE TABLE IF NOT EXISTS alert_log (
			id UUID,
			timestamp DateTime64(3),
			bin_type LowCardinality(String)
		) ENGINE = MergeTree()
		ORDER BY (bin_type, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		PredictionLogTableSQL,
		DisposeLogTableSQL,
		BinLevelsTableSQL,
		AlertLogTableSQL,
	}
}
