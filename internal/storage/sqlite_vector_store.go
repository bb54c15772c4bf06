package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3" // Import sqlite3 driver
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteClient implements a local vector database on SQLite using sqlite-vec.
// Each index is a vec0 virtual table partitioned by namespace; chunk ids and
// metadata live in a regular table joined on rowid.
type SQLiteClient struct {
	db *sql.DB
}

// NewSQLiteClient opens (or creates) the database at dsn
func NewSQLiteClient(dsn string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	client := &SQLiteClient{db: db}
	if err := client.initDB(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return client, nil
}

// initDB creates the catalog and vector metadata tables
func (s *SQLiteClient) initDB() error {
	schema := `
	CREATE TABLE IF NOT EXISTS indexes (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		metric TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS vectors (
		rowid INTEGER PRIMARY KEY AUTOINCREMENT,
		index_name TEXT NOT NULL,
		namespace TEXT NOT NULL,
		id TEXT NOT NULL,
		metadata TEXT NOT NULL,
		UNIQUE (index_name, namespace, id)
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteClient) Close() error {
	return s.db.Close()
}

func (s *SQLiteClient) ListIndexes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM indexes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan index name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CreateIndex registers the index and creates its vec0 table. Cloud and region
// have no meaning locally and are ignored.
func (s *SQLiteClient) CreateIndex(ctx context.Context, spec IndexSpec) error {
	distance, err := vecDistanceMetric(spec.Metric)
	if err != nil {
		return err
	}
	if spec.Dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", spec.Dimension)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO indexes (name, dimension, metric) VALUES (?, ?, ?)`,
		spec.Name, spec.Dimension, spec.Metric,
	); err != nil {
		return fmt.Errorf("failed to register index %s: %w", spec.Name, err)
	}

	vecQuery := fmt.Sprintf(`
		CREATE VIRTUAL TABLE %s USING vec0(
			namespace text partition key,
			embedding float[%d] distance_metric=%s
		)
	`, vecTableName(spec.Name), spec.Dimension, distance)

	if _, err := tx.ExecContext(ctx, vecQuery); err != nil {
		return fmt.Errorf("failed to create vec table for %s: %w", spec.Name, err)
	}

	return tx.Commit()
}

func (s *SQLiteClient) Index(ctx context.Context, name string) (Index, error) {
	idx := &sqliteIndex{db: s.db, name: name, table: vecTableName(name)}
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension, metric FROM indexes WHERE name = ?`, name,
	).Scan(&idx.dimension, &idx.metric)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to describe index %s: %w", name, err)
	}
	return idx, nil
}

type sqliteIndex struct {
	db        *sql.DB
	name      string
	table     string
	dimension int
	metric    string
}

// Upsert inserts or replaces vectors. vec0 does not support UPDATE, so an
// existing vector is deleted and reinserted under the same rowid.
func (s *sqliteIndex) Upsert(ctx context.Context, namespace string, records []Record, _ int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		if len(r.Values) != s.dimension {
			return fmt.Errorf("vector %s has dimension %d, index expects %d", r.ID, len(r.Values), s.dimension)
		}

		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", r.ID, err)
		}

		var rowid int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vectors WHERE index_name = ? AND namespace = ? AND id = ?`,
			s.name, namespace, r.ID,
		).Scan(&rowid)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx,
				`INSERT INTO vectors (index_name, namespace, id, metadata) VALUES (?, ?, ?, ?)`,
				s.name, namespace, r.ID, string(metadata),
			)
			if err != nil {
				return fmt.Errorf("failed to insert vector metadata: %w", err)
			}
			if rowid, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read rowid: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up vector %s: %w", r.ID, err)
		default:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vectors SET metadata = ? WHERE rowid = ?`, string(metadata), rowid,
			); err != nil {
				return fmt.Errorf("failed to update vector metadata: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, s.table), rowid,
			); err != nil {
				return fmt.Errorf("failed to delete old vector: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (rowid, namespace, embedding) VALUES (?, ?, ?)`, s.table),
			rowid, namespace, serializeFloat32Vector(r.Values),
		); err != nil {
			return fmt.Errorf("failed to insert vector %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *sqliteIndex) DeleteByID(ctx context.Context, namespace string, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		var rowid int64
		err := tx.QueryRowContext(ctx,
			`SELECT rowid FROM vectors WHERE index_name = ? AND namespace = ? AND id = ?`,
			s.name, namespace, id,
		).Scan(&rowid)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to look up vector %s: %w", id, err)
		}
		if err := deleteRow(ctx, tx, s.table, rowid); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *sqliteIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT rowid FROM vectors WHERE index_name = ? AND namespace = ?`, s.name, namespace)
	if err != nil {
		return fmt.Errorf("failed to list namespace %s: %w", namespace, err)
	}
	var rowids []int64
	for rows.Next() {
		var rowid int64
		if err := rows.Scan(&rowid); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan rowid: %w", err)
		}
		rowids = append(rowids, rowid)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating namespace %s: %w", namespace, err)
	}

	for _, rowid := range rowids {
		if err := deleteRow(ctx, tx, s.table, rowid); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func deleteRow(ctx context.Context, tx *sql.Tx, table string, rowid int64) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, table), rowid); err != nil {
		return fmt.Errorf("failed to delete vector: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE rowid = ?`, rowid); err != nil {
		return fmt.Errorf("failed to delete vector metadata: %w", err)
	}
	return nil
}

func (s *sqliteIndex) DescribeStats(ctx context.Context) (*IndexStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT namespace, COUNT(*) FROM vectors WHERE index_name = ? GROUP BY namespace`, s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &IndexStats{Dimension: s.dimension, Namespaces: make(map[string]int)}
	for rows.Next() {
		var namespace string
		var count int
		if err := rows.Scan(&namespace, &count); err != nil {
			return nil, fmt.Errorf("failed to scan namespace stats: %w", err)
		}
		stats.Namespaces[namespace] = count
		stats.TotalVectorCount += count
	}
	return stats, rows.Err()
}

// Query performs KNN search within one namespace partition
func (s *sqliteIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return []Match{}, nil
	}

	// sqlite-vec requires the k parameter to be part of the MATCH constraint
	query := fmt.Sprintf(`
		SELECT
			d.id,
			d.metadata,
			v.distance
		FROM %s v
		JOIN vectors d ON d.rowid = v.rowid
		WHERE v.embedding MATCH ? AND k = ? AND v.namespace = ?
		ORDER BY v.distance
	`, s.table)

	rows, err := s.db.QueryContext(ctx, query, serializeFloat32Vector(vector), topK, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to perform vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []Match{}
	for rows.Next() {
		var id, metadata string
		var distance float64

		if err := rows.Scan(&id, &metadata, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}

		m := Match{ID: id, Score: s.score(distance)}
		if err := json.Unmarshal([]byte(metadata), &m.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", id, err)
		}
		results = append(results, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

// score turns a vec0 distance into a similarity where higher is better
func (s *sqliteIndex) score(distance float64) float32 {
	if s.metric == "cosine" {
		return float32(1 - distance)
	}
	return float32(1 / (1 + distance))
}

func vecDistanceMetric(metric string) (string, error) {
	switch metric {
	case "cosine":
		return "cosine", nil
	case "euclidean":
		return "l2", nil
	default:
		return "", fmt.Errorf("sqlite backend does not support metric %q", metric)
	}
}

// vecTableName derives a safe virtual table name from an index name. The
// suffix keeps names that sanitize alike, or differ only in case, apart.
func vecTableName(index string) string {
	var b strings.Builder
	b.WriteString("vec_")
	for _, r := range index {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(index))
	fmt.Fprintf(&b, "_%08x", h.Sum32())
	return b.String()
}

// serializeFloat32Vector converts a float32 slice to the byte format expected by sqlite-vec
func serializeFloat32Vector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(v))
	}
	return buf
}
