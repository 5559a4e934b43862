package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ehalsey/chat-copilot/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store persists memory records in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path and applies migrations.
// The parent directory is created if missing.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, domain.NewConfigurationError("memory_store.sqlite.path", "", "path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations. Each migration records its own version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_memory_records.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// Upsert inserts or replaces a record in its collection.
func (s *Store) Upsert(ctx context.Context, record domain.MemoryRecord) (string, error) {
	if record.ID == "" {
		return "", fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_records (collection, id, text, description, external_source_name,
			is_reference, additional_metadata, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			text = excluded.text,
			description = excluded.description,
			external_source_name = excluded.external_source_name,
			is_reference = excluded.is_reference,
			additional_metadata = excluded.additional_metadata,
			embedding = excluded.embedding,
			created_at = excluded.created_at
	`, record.Collection, record.ID, record.Text, record.Description, record.ExternalSourceName,
		record.IsReference, record.AdditionalMetadata, float32SliceToBytes(record.Embedding),
		record.Timestamp.UTC())
	if err != nil {
		return "", fmt.Errorf("saving memory record: %w", err)
	}
	return record.ID, nil
}

// Get retrieves a record by collection and key.
func (s *Store) Get(ctx context.Context, collection, key string, withEmbedding bool) (*domain.MemoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT collection, id, text, description, external_source_name,
			is_reference, additional_metadata, embedding, created_at
		FROM memory_records WHERE collection = ? AND id = ?
	`, collection, key)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !withEmbedding {
		record.Embedding = nil
	}
	return record, nil
}

// Query ranks the collection's records by cosine similarity to embedding.
func (s *Store) Query(
	ctx context.Context,
	collection string,
	embedding []float32,
	limit int,
	minRelevance float64,
	withEmbeddings bool,
) ([]domain.MemoryQueryResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, id, text, description, external_source_name,
			is_reference, additional_metadata, embedding, created_at
		FROM memory_records WHERE collection = ?
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("querying memory records: %w", err)
	}
	defer rows.Close()

	var results []domain.MemoryQueryResult
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}

		relevance := domain.CosineSimilarity(embedding, record.Embedding)
		if relevance < minRelevance {
			continue
		}
		if !withEmbeddings {
			record.Embedding = nil
		}
		results = append(results, domain.MemoryQueryResult{Record: *record, Relevance: relevance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memory records: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a record. Missing records are ignored.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM memory_records WHERE collection = ? AND id = ?", collection, key)
	if err != nil {
		return fmt.Errorf("deleting memory record: %w", err)
	}
	return nil
}

// Collections lists the collections holding at least one record.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT collection FROM memory_records ORDER BY collection")
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.MemoryRecord, error) {
	var r domain.MemoryRecord
	var embedding []byte
	if err := row.Scan(&r.Collection, &r.ID, &r.Text, &r.Description, &r.ExternalSourceName,
		&r.IsReference, &r.AdditionalMetadata, &embedding, &r.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning memory record: %w", err)
	}
	r.Embedding = bytesToFloat32Slice(embedding)
	return &r, nil
}

// float32SliceToBytes converts []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
