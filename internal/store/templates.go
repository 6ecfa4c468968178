// Package store provides the Data Access Layer (Repository) for the document
// hub. It handles all direct interactions with the PostgreSQL database using
// the pgx driver.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to verify that PostgresTemplateStore implements TemplateRepository.
var _ TemplateRepository = (*PostgresTemplateStore)(nil)

// Template represents the database schema for a document template definition.
// It mirrors the 'document_templates' table structure. The three JSON columns
// are stored raw; the consuming packages own their parsing.
type Template struct {
	ID                     int64           `db:"id"`
	Type                   string          `db:"template_type"`
	Version                string          `db:"template_version"`
	Category               string          `db:"category"`
	Description            string          `db:"description"`
	LineOfBusiness         string          `db:"line_of_business"`
	SharingScope           string          `db:"sharing_scope"`
	SharedDocumentFlag     bool            `db:"shared_document_flag"`
	SingleDocumentFlag     bool            `db:"single_document_flag"`
	MessageCenterFlag      bool            `db:"message_center_flag"`
	CommunicationType      string          `db:"communication_type"`
	AccessControl          json.RawMessage `db:"access_control"`
	EligibilityCriteria    json.RawMessage `db:"eligibility_criteria"`
	DataExtractionConfig   json.RawMessage `db:"data_extraction_config"`
	DocumentMatchingConfig json.RawMessage `db:"document_matching_config"`
	EffectiveFrom          time.Time       `db:"effective_from"`
	EffectiveUntil         *time.Time      `db:"effective_until"`
	CreatedAt              time.Time       `db:"created_at"`
	UpdatedAt              time.Time       `db:"updated_at"`
}

// CacheKey identifies a template in the template cache.
func (t *Template) CacheKey() string {
	return t.Type + ":" + t.Version
}

// TemplateRepository defines the interface for template persistence operations.
type TemplateRepository interface {
	// FindActiveTemplatesWithFilters retrieves the templates effective at
	// asOf that match the given filters. Empty lineOfBusiness and
	// communicationType match everything; a nil messageCenterFlag skips
	// that filter.
	FindActiveTemplatesWithFilters(ctx context.Context, lineOfBusiness string, messageCenterFlag *bool, communicationType string, asOf time.Time) ([]*Template, error)

	// FindByTypeAndVersion retrieves one template definition.
	// Returns (nil, nil) when no such template exists.
	FindByTypeAndVersion(ctx context.Context, templateType, version string) (*Template, error)
}

// PostgresTemplateStore is the implementation of TemplateRepository backed by PostgreSQL.
type PostgresTemplateStore struct {
	db *pgxpool.Pool
}

// NewPostgresTemplateStore creates a new repository instance with the given connection pool.
func NewPostgresTemplateStore(db *pgxpool.Pool) *PostgresTemplateStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresTemplateStore{db: db}
}

const templateColumns = `
	id, template_type, template_version, category, description,
	line_of_business, sharing_scope, shared_document_flag, single_document_flag,
	message_center_flag, communication_type, access_control,
	eligibility_criteria, data_extraction_config, document_matching_config,
	effective_from, effective_until, created_at, updated_at`

// FindActiveTemplatesWithFilters retrieves active template definitions.
// The filters are applied in SQL so the cache layer above only holds rows the
// caller can actually use.
func (s *PostgresTemplateStore) FindActiveTemplatesWithFilters(ctx context.Context, lineOfBusiness string, messageCenterFlag *bool, communicationType string, asOf time.Time) ([]*Template, error) {
	query, args := activeTemplatesQuery(lineOfBusiness, messageCenterFlag, communicationType, asOf)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active templates: %w", err)
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return templates, nil
}

// activeTemplatesQuery builds the active-template query. Each filter argument
// must line up with the placeholder of the column it guards: $2 the
// line_of_business text, $3 the message_center_flag boolean, $4 the
// communication_type text.
func activeTemplatesQuery(lineOfBusiness string, messageCenterFlag *bool, communicationType string, asOf time.Time) (string, []any) {
	query := `
		SELECT ` + templateColumns + `
		FROM document_templates
		WHERE effective_from <= $1
		  AND (effective_until IS NULL OR effective_until > $1)
		  AND ($2 = '' OR line_of_business = $2)
		  AND ($3::boolean IS NULL OR message_center_flag = $3)
		  AND ($4 = '' OR communication_type = $4)
		ORDER BY template_type, template_version
	`
	return query, []any{asOf, lineOfBusiness, messageCenterFlag, communicationType}
}

// FindByTypeAndVersion retrieves one template definition by its natural key.
func (s *PostgresTemplateStore) FindByTypeAndVersion(ctx context.Context, templateType, version string) (*Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM document_templates
		WHERE template_type = $1 AND template_version = $2
	`

	rows, err := s.db.Query(ctx, query, templateType, version)
	if err != nil {
		return nil, fmt.Errorf("failed to query template %s:%s: %w", templateType, version, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("rows iteration error: %w", err)
		}
		return nil, nil
	}
	return scanTemplate(rows)
}

func scanTemplate(rows pgx.Rows) (*Template, error) {
	var t Template
	if err := rows.Scan(
		&t.ID,
		&t.Type,
		&t.Version,
		&t.Category,
		&t.Description,
		&t.LineOfBusiness,
		&t.SharingScope,
		&t.SharedDocumentFlag,
		&t.SingleDocumentFlag,
		&t.MessageCenterFlag,
		&t.CommunicationType,
		&t.AccessControl,
		&t.EligibilityCriteria,
		&t.DataExtractionConfig,
		&t.DocumentMatchingConfig,
		&t.EffectiveFrom,
		&t.EffectiveUntil,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan template row: %w", err)
	}
	return &t, nil
}
