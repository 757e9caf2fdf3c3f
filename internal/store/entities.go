package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mitds/internal/models"
)

// EntityRepo persists Entity rows, grounded on the teacher's
// analysis_repo.go upsert-by-JSONB pattern (INSERT ... ON CONFLICT DO
// UPDATE, pgx.ErrNoRows handling on lookups).
type EntityRepo struct {
	pool *pgxpool.Pool
}

func NewEntityRepo(pool *pgxpool.Pool) *EntityRepo { return &EntityRepo{pool: pool} }

// entityAttrs is the subset of Entity fields that do not have their own
// relational column, marshaled into the JSONB attrs column.
type entityAttrs struct {
	ExternalIDs    map[string]string `json:"external_ids,omitempty"`
	Address        *models.Address   `json:"address,omitempty"`
	Properties     map[string]any    `json:"properties,omitempty"`
	OrgType        models.OrgType    `json:"org_type,omitempty"`
	Status         models.OrgStatus  `json:"status,omitempty"`
	Jurisdiction   string            `json:"jurisdiction,omitempty"`
	IsCanadian     bool              `json:"is_canadian,omitempty"`
	Sector         string            `json:"sector,omitempty"`
	SIC            string            `json:"sic,omitempty"`
	SICDesc        string            `json:"sic_description,omitempty"`
	FiscalYearEnd  string            `json:"fiscal_year_end,omitempty"`
	Tickers        []string          `json:"tickers,omitempty"`
	Exchanges      []string          `json:"exchanges,omitempty"`
	Aliases        []string          `json:"aliases,omitempty"`
	Location       string            `json:"location,omitempty"`
	Domains        []string          `json:"domains,omitempty"`
	MediaType      models.MediaType  `json:"media_type,omitempty"`
	EditorialFocus []string          `json:"editorial_focus,omitempty"`
	OwnerOrgID     string            `json:"owner_org_id,omitempty"`
	MetaPageID     string            `json:"meta_page_id,omitempty"`
	Disclaimer     string            `json:"disclaimer,omitempty"`
	ResolvedOrgID  string            `json:"resolved_org_id,omitempty"`
	Platform       string            `json:"platform,omitempty"`
	PlatformAdID   string            `json:"platform_ad_id,omitempty"`
	SpendLower     float64           `json:"spend_lower,omitempty"`
	SpendUpper     float64           `json:"spend_upper,omitempty"`
	CreativeText   string            `json:"creative_text,omitempty"`
	Institution    string            `json:"institution,omitempty"`
	IsGovernment   bool              `json:"is_government,omitempty"`
}

func toAttrs(e *models.Entity) entityAttrs {
	return entityAttrs{
		ExternalIDs: e.ExternalIDs, Address: e.Address, Properties: e.Properties,
		OrgType: e.OrgType, Status: e.Status, Jurisdiction: e.Jurisdiction, IsCanadian: e.IsCanadian,
		Sector: e.Sector, SIC: e.SIC, SICDesc: e.SICDesc, FiscalYearEnd: e.FiscalYearEnd,
		Tickers: e.Tickers, Exchanges: e.Exchanges, Aliases: e.Aliases, Location: e.Location,
		Domains: e.Domains, MediaType: e.MediaType, EditorialFocus: e.EditorialFocus, OwnerOrgID: e.OwnerOrgID,
		MetaPageID: e.MetaPageID, Disclaimer: e.Disclaimer, ResolvedOrgID: e.ResolvedOrgID,
		Platform: e.Platform, PlatformAdID: e.PlatformAdID, SpendLower: e.SpendLower, SpendUpper: e.SpendUpper,
		CreativeText: e.CreativeText, Institution: e.Institution, IsGovernment: e.IsGovernment,
	}
}

func fromAttrs(a entityAttrs, e *models.Entity) {
	e.ExternalIDs, e.Address, e.Properties = a.ExternalIDs, a.Address, a.Properties
	e.OrgType, e.Status, e.Jurisdiction, e.IsCanadian = a.OrgType, a.Status, a.Jurisdiction, a.IsCanadian
	e.Sector, e.SIC, e.SICDesc, e.FiscalYearEnd = a.Sector, a.SIC, a.SICDesc, a.FiscalYearEnd
	e.Tickers, e.Exchanges, e.Aliases, e.Location = a.Tickers, a.Exchanges, a.Aliases, a.Location
	e.Domains, e.MediaType, e.EditorialFocus, e.OwnerOrgID = a.Domains, a.MediaType, a.EditorialFocus, a.OwnerOrgID
	e.MetaPageID, e.Disclaimer, e.ResolvedOrgID = a.MetaPageID, a.Disclaimer, a.ResolvedOrgID
	e.Platform, e.PlatformAdID, e.SpendLower, e.SpendUpper = a.Platform, a.PlatformAdID, a.SpendLower, a.SpendUpper
	e.CreativeText, e.Institution, e.IsGovernment = a.CreativeText, a.Institution, a.IsGovernment
}

// Upsert inserts or updates an Entity keyed on (entity_type, merge_key)
// within tx, never overwriting created_at and always advancing updated_at
// (I4). Returns the persisted row and whether it was newly created.
func (r *EntityRepo) Upsert(ctx context.Context, tx pgx.Tx, e *models.Entity, mergeKey string) (*models.Entity, bool, error) {
	attrsJSON, err := json.Marshal(toAttrs(e))
	if err != nil {
		return nil, false, fmt.Errorf("marshal entity attrs: %w", err)
	}

	var id string
	var createdAt, updatedAt any
	var wasInserted bool
	err = tx.QueryRow(ctx, `
		INSERT INTO entities (id, entity_type, name, confidence, created_at, updated_at, merge_key, attrs)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7)
		ON CONFLICT (entity_type, merge_key) DO UPDATE SET
			name = EXCLUDED.name,
			confidence = GREATEST(entities.confidence, EXCLUDED.confidence),
			updated_at = $5,
			attrs = entities.attrs || EXCLUDED.attrs
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`, e.ID, string(e.Type), e.Name, e.Confidence, e.UpdatedAt, mergeKey, attrsJSON).Scan(&id, &createdAt, &updatedAt, &wasInserted)
	if err != nil {
		return nil, false, fmt.Errorf("upsert entity: %w", err)
	}

	e.ID = id
	return e, wasInserted, nil
}

// Get loads an Entity by id.
func (r *EntityRepo) Get(ctx context.Context, id string) (*models.Entity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, entity_type, name, confidence, created_at, updated_at, attrs
		FROM entities WHERE id = $1
	`, id)

	var e models.Entity
	var entityType string
	var attrsJSON []byte
	if err := row.Scan(&e.ID, &entityType, &e.Name, &e.Confidence, &e.CreatedAt, &e.UpdatedAt, &attrsJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("entity %s not found", id)
		}
		return nil, fmt.Errorf("load entity %s: %w", id, err)
	}
	e.Type = models.EntityType(entityType)

	var attrs entityAttrs
	if err := json.Unmarshal(attrsJSON, &attrs); err != nil {
		return nil, fmt.Errorf("unmarshal entity attrs: %w", err)
	}
	fromAttrs(attrs, &e)
	return &e, nil
}

// FindByMergeKey looks up an existing entity by (type, merge key) ahead of
// an upsert decision, without needing a full transaction.
func (r *EntityRepo) FindByMergeKey(ctx context.Context, entityType models.EntityType, mergeKey string) (*models.Entity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, confidence, created_at, updated_at, attrs
		FROM entities WHERE entity_type = $1 AND merge_key = $2
	`, string(entityType), mergeKey)

	var e models.Entity
	e.Type = entityType
	var attrsJSON []byte
	if err := row.Scan(&e.ID, &e.Name, &e.Confidence, &e.CreatedAt, &e.UpdatedAt, &attrsJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find entity by merge key: %w", err)
	}
	var attrs entityAttrs
	if err := json.Unmarshal(attrsJSON, &attrs); err != nil {
		return nil, fmt.Errorf("unmarshal entity attrs: %w", err)
	}
	fromAttrs(attrs, &e)
	return &e, nil
}
