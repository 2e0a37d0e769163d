package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"polybin/internal/audit"
	"polybin/internal/models"
)

var _ audit.Sink = (*ClickHouseDB)(nil)

// ClickHouseDB is the audit sink
type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}
	if err := db.InitSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// InitSchema creates the audit tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// SavePrediction saves one raw vision prediction
func (db *ClickHouseDB) SavePrediction(ctx context.Context, r *models.PredictionRecord) error {
	query := `
		INSERT INTO prediction_log (id, timestamp, frame_id, class, confidence, x, y, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		r.ID,
		r.Timestamp,
		r.FrameID,
		r.Class,
		r.Confidence,
		r.X,
		r.Y,
		r.Width,
		r.Height,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// SaveDispose saves a completed disposal
func (db *ClickHouseDB) SaveDispose(ctx context.Context, r *models.DisposeRecord) error {
	query := `
		INSERT INTO dispose_log (id, timestamp, bin_type)
		VALUES (?, ?, ?)
	`

	if err := db.conn.Exec(ctx, query, r.ID, r.Timestamp, r.BinType); err != nil {
		return fmt.Errorf("failed to insert disposal: %w", err)
	}

	log.Printf("Saved disposal to ClickHouse: BinType=%s", r.BinType)
	return nil
}

// SaveBinStatus saves one sensor snapshot
func (db *ClickHouseDB) SaveBinStatus(ctx context.Context, r *models.BinStatusRecord) error {
	query := `
		INSERT INTO bin_levels (id, timestamp, biodegradable, non_biodegradable, recyclable, hazardous)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		r.ID,
		r.Timestamp,
		r.Levels.Level(models.Biodegradable),
		r.Levels.Level(models.NonBiodegradable),
		r.Levels.Level(models.Recyclable),
		r.Levels.Level(models.Hazardous),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bin levels: %w", err)
	}
	return nil
}

// SaveAlert saves a sent full-bin notification
func (db *ClickHouseDB) SaveAlert(ctx context.Context, r *models.AlertRecord) error {
	query := `
		INSERT INTO alert_log (id, timestamp, bin_type)
		VALUES (?, ?, ?)
	`

	if err := db.conn.Exec(ctx, query, r.ID, r.Timestamp, r.BinType); err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// RecentDisposals returns the latest disposals, newest first
func (db *ClickHouseDB) RecentDisposals(ctx context.Context, limit int) ([]models.DisposeRecord, error) {
	query := `
		SELECT id, timestamp, bin_type
		FROM dispose_log
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query disposals: %w", err)
	}
	defer rows.Close()

	var records []models.DisposeRecord
	for rows.Next() {
		var r models.DisposeRecord
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.BinType); err != nil {
			return nil, fmt.Errorf("failed to scan disposal: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DisposalCounts returns the number of disposals per bin type since a point in time
func (db *ClickHouseDB) DisposalCounts(ctx context.Context, since time.Time) (map[string]uint64, error) {
	query := `
		SELECT bin_type, count() AS total
		FROM dispose_log
		WHERE timestamp >= ?
		GROUP BY bin_type
	`

	rows, err := db.conn.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query disposal counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var binType string
		var total uint64
		if err := rows.Scan(&binType, &total); err != nil {
			return nil, fmt.Errorf("failed to scan disposal count: %w", err)
		}
		counts[binType] = total
	}
	return counts, rows.Err()
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}
