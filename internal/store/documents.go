package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to verify that PostgresStorageIndex implements StorageIndexRepository.
var _ StorageIndexRepository = (*PostgresStorageIndex)(nil)

// Document represents one row of the storage index. The binary content lives
// in an external object store, addressed by StorageKey.
type Document struct {
	ID               int64          `db:"id"`
	AccountID        string         `db:"account_id"`
	TemplateType     string         `db:"template_type"`
	TemplateVersion  string         `db:"template_version"`
	ReferenceKey     string         `db:"reference_key"`
	ReferenceKeyType string         `db:"reference_key_type"`
	SharedFlag       bool           `db:"shared_flag"`
	CreationEpochMs  int64          `db:"creation_epoch_ms"`
	Metadata         map[string]any `db:"metadata"`
	FileName         string         `db:"file_name"`
	StorageKey       string         `db:"storage_key"`
}

// DateRange bounds a storage-index query by posted date, in epoch millis.
// A zero bound is open-ended.
type DateRange struct {
	FromEpochMs int64
	ToEpochMs   int64
}

// StorageIndexRepository defines the filtered query entry points the document
// matcher dispatches to.
type StorageIndexRepository interface {
	// FindAccountDocuments retrieves documents scoped to one account.
	FindAccountDocuments(ctx context.Context, accountID, templateType, templateVersion string, window DateRange) ([]*Document, error)

	// FindSharedDocuments retrieves documents shared across all accounts.
	FindSharedDocuments(ctx context.Context, templateType, templateVersion string, window DateRange) ([]*Document, error)

	// FindByReferenceKey retrieves documents by an exact reference key.
	FindByReferenceKey(ctx context.Context, referenceKey, referenceKeyType, templateType, templateVersion string, window DateRange) ([]*Document, error)

	// FindByReferenceKeyType retrieves all documents carrying keys of one type.
	FindByReferenceKeyType(ctx context.Context, referenceKeyType, templateType, templateVersion string, window DateRange) ([]*Document, error)
}

// PostgresStorageIndex is the implementation of StorageIndexRepository backed by PostgreSQL.
type PostgresStorageIndex struct {
	db *pgxpool.Pool
}

// NewPostgresStorageIndex creates a new repository instance with the given connection pool.
func NewPostgresStorageIndex(db *pgxpool.Pool) *PostgresStorageIndex {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresStorageIndex{db: db}
}

const documentColumns = `
	id, account_id, template_type, template_version, reference_key,
	reference_key_type, shared_flag, creation_epoch_ms, metadata,
	file_name, storage_key`

// dateRangeClause is shared by every query; $1/$2 are the window bounds.
const dateRangeClause = `
	  AND ($1 = 0 OR creation_epoch_ms >= $1)
	  AND ($2 = 0 OR creation_epoch_ms <= $2)`

func (s *PostgresStorageIndex) FindAccountDocuments(ctx context.Context, accountID, templateType, templateVersion string, window DateRange) ([]*Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM storage_index
		WHERE account_id = $3
		  AND template_type = $4
		  AND template_version = $5` + dateRangeClause + `
		ORDER BY creation_epoch_ms DESC
	`
	return s.queryDocuments(ctx, query, window.FromEpochMs, window.ToEpochMs, accountID, templateType, templateVersion)
}

func (s *PostgresStorageIndex) FindSharedDocuments(ctx context.Context, templateType, templateVersion string, window DateRange) ([]*Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM storage_index
		WHERE shared_flag = TRUE
		  AND template_type = $3
		  AND template_version = $4` + dateRangeClause + `
		ORDER BY creation_epoch_ms DESC
	`
	return s.queryDocuments(ctx, query, window.FromEpochMs, window.ToEpochMs, templateType, templateVersion)
}

func (s *PostgresStorageIndex) FindByReferenceKey(ctx context.Context, referenceKey, referenceKeyType, templateType, templateVersion string, window DateRange) ([]*Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM storage_index
		WHERE reference_key = $3
		  AND reference_key_type = $4
		  AND template_type = $5
		  AND template_version = $6` + dateRangeClause + `
		ORDER BY creation_epoch_ms DESC
	`
	return s.queryDocuments(ctx, query, window.FromEpochMs, window.ToEpochMs, referenceKey, referenceKeyType, templateType, templateVersion)
}

func (s *PostgresStorageIndex) FindByReferenceKeyType(ctx context.Context, referenceKeyType, templateType, templateVersion string, window DateRange) ([]*Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM storage_index
		WHERE reference_key_type = $3
		  AND template_type = $4
		  AND template_version = $5` + dateRangeClause + `
		ORDER BY creation_epoch_ms DESC
	`
	return s.queryDocuments(ctx, query, window.FromEpochMs, window.ToEpochMs, referenceKeyType, templateType, templateVersion)
}

func (s *PostgresStorageIndex) queryDocuments(ctx context.Context, query string, from, to int64, args ...any) ([]*Document, error) {
	queryArgs := append([]any{from, to}, args...)

	rows, err := s.db.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage index: %w", err)
	}
	defer rows.Close()

	var documents []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return documents, nil
}

func scanDocument(rows pgx.Rows) (*Document, error) {
	var d Document
	if err := rows.Scan(
		&d.ID,
		&d.AccountID,
		&d.TemplateType,
		&d.TemplateVersion,
		&d.ReferenceKey,
		&d.ReferenceKeyType,
		&d.SharedFlag,
		&d.CreationEpochMs,
		&d.Metadata,
		&d.FileName,
		&d.StorageKey,
	); err != nil {
		return nil, fmt.Errorf("failed to scan document row: %w", err)
	}
	return &d, nil
}
