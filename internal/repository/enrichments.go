package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/contact-enricher/internal/entity"
)

// ErrEnrichmentNotFound indicates there is no stored result for the lead.
var ErrEnrichmentNotFound = errors.New("lead enrichment not found")

// pgxPool is the subset of *pgxpool.Pool used by the repositories.
type pgxPool interface {
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
}

var _ pgxPool = (*pgxpool.Pool)(nil)

// StoredEnrichment is a persisted enrichment result.
type StoredEnrichment struct {
	LeadID    uuid.UUID               `json:"lead_id"`
	Result    entity.EnrichmentResult `json:"result"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// EnrichmentsRepository persists the latest enrichment result per lead.
type EnrichmentsRepository interface {
	Save(ctx context.Context, leadID uuid.UUID, result entity.EnrichmentResult) error
	Get(ctx context.Context, leadID uuid.UUID) (*StoredEnrichment, error)
}

// PGXEnrichmentsRepository implements EnrichmentsRepository using pgx.
type PGXEnrichmentsRepository struct {
	pool pgxPool
}

// NewPGXEnrichmentsRepository wires a pgx backed repository.
func NewPGXEnrichmentsRepository(pool *pgxpool.Pool) *PGXEnrichmentsRepository {
	return &PGXEnrichmentsRepository{pool: pool}
}

// Save upserts the result for leadID; a later run replaces an earlier one.
func (r *PGXEnrichmentsRepository) Save(ctx context.Context, leadID uuid.UUID, result entity.EnrichmentResult) error {
	if leadID == uuid.Nil {
		return fmt.Errorf("lead id must not be empty")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal enrichment: %w", err)
	}

	var source *string
	if result.EnrichmentSource != nil {
		s := string(*result.EnrichmentSource)
		source = &s
	}

	query := `
		INSERT INTO lead_enrichments (
			lead_id,
			result,
			status,
			enrichment_source,
			enriched_at,
			updated_at
		) VALUES ($1, $2::jsonb, $3, $4, $5, NOW())
		ON CONFLICT (lead_id) DO UPDATE SET
			result = EXCLUDED.result,
			status = EXCLUDED.status,
			enrichment_source = EXCLUDED.enrichment_source,
			enriched_at = EXCLUDED.enriched_at,
			updated_at = NOW();
	`

	_, err = r.pool.Exec(ctx, query,
		leadID,
		string(payload),
		string(result.Status),
		source,
		result.EnrichedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert enrichment: %w", err)
	}

	return nil
}

// Get returns the stored result for leadID.
func (r *PGXEnrichmentsRepository) Get(ctx context.Context, leadID uuid.UUID) (*StoredEnrichment, error) {
	query := `
		SELECT lead_id, result, updated_at
		FROM lead_enrichments
		WHERE lead_id = $1
	`

	var (
		record  StoredEnrichment
		payload []byte
	)
	err := r.pool.QueryRow(ctx, query, leadID).Scan(&record.LeadID, &payload, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEnrichmentNotFound
		}
		return nil, fmt.Errorf("fetch enrichment: %w", err)
	}

	if err := json.Unmarshal(payload, &record.Result); err != nil {
		return nil, fmt.Errorf("unmarshal enrichment: %w", err)
	}

	return &record, nil
}
