package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to verify that PostgresAuditStore implements AuditRepository.
var _ AuditRepository = (*PostgresAuditStore)(nil)

// AuditEvent records one document enquiry for the compliance trail.
type AuditEvent struct {
	ID            uuid.UUID
	CorrelationID string
	CustomerID    string
	AccountIDs    []string
	RequestorType string
	DocumentCount int
	Duration      time.Duration
	CreatedAt     time.Time
}

// AuditRepository defines the interface for audit persistence.
// Recording is best-effort: callers log failures and move on.
type AuditRepository interface {
	RecordEnquiry(ctx context.Context, event *AuditEvent) error
}

// PostgresAuditStore is the implementation of AuditRepository backed by PostgreSQL.
type PostgresAuditStore struct {
	db *pgxpool.Pool
}

// NewPostgresAuditStore creates a new repository instance with the given connection pool.
func NewPostgresAuditStore(db *pgxpool.Pool) *PostgresAuditStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresAuditStore{db: db}
}

// RecordEnquiry inserts one audit event row.
func (s *PostgresAuditStore) RecordEnquiry(ctx context.Context, event *AuditEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	query := `
		INSERT INTO document_events
			(id, correlation_id, customer_id, account_ids, requestor_type, document_count, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := s.db.QueryRow(ctx, query,
		event.ID,
		event.CorrelationID,
		event.CustomerID,
		event.AccountIDs,
		event.RequestorType,
		event.DocumentCount,
		event.Duration.Milliseconds(),
	).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}
