// Package canadacorps implements the ISED Canada Corporations source
// adapter (§4.4): bulk XML is parsed, act codes map to org_type and status
// codes map to the node status enum, both fixed tables that must be
// reproduced verbatim (§6).
package canadacorps

import (
	"context"
	"fmt"
	"time"

	"mitds/internal/graph"
	"mitds/internal/ingestion"
	"mitds/internal/models"
)

// ActCodeToOrgType maps ISED incorporating-act codes to org_type.
var ActCodeToOrgType = map[string]models.OrgType{
	"CBCA": models.OrgCorporation,
	"NFP":  models.OrgNonprofit,
	"CCA":  models.OrgNonprofit,
	"COOP": models.OrgCorporation,
	"BOTA": models.OrgCorporation,
}

// StatusCodeToStatus maps ISED status codes to the node status enum.
var StatusCodeToStatus = map[string]models.OrgStatus{
	"ACTIVE":    models.StatusActive,
	"INACTIVE":  models.StatusInactive,
	"DISSOLVED": models.StatusRevoked,
	"AMALGAMATED": models.StatusInactive,
}

func MapOrgType(actCode string) models.OrgType {
	if t, ok := ActCodeToOrgType[actCode]; ok {
		return t
	}
	return models.OrgUnknown
}

func MapStatus(statusCode string) models.OrgStatus {
	if s, ok := StatusCodeToStatus[statusCode]; ok {
		return s
	}
	return models.StatusUnknown
}

// Record is one corporation row parsed from the ISED bulk XML extract.
type Record struct {
	CorpNumber   string
	Name         string
	ActCode      string
	StatusCode   string
	Jurisdiction string
}

func (r Record) RecordID() string { return r.CorpNumber }

type FetchFunc func(ctx context.Context, cfg ingestion.RunConfig) (func() (Record, bool, error), error)

// Adapter implements ingestion.Adapter for ISED Canada Corporations data.
type Adapter struct {
	fetch  FetchFunc
	writer *graph.Writer
}

func New(fetch FetchFunc, writer *graph.Writer) *Adapter {
	return &Adapter{fetch: fetch, writer: writer}
}

func (a *Adapter) Source() string { return "canada_corps" }

func (a *Adapter) Fetch(ctx context.Context, cfg ingestion.RunConfig) (func() (ingestion.Record, bool, error), error) {
	next, err := a.fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return func() (ingestion.Record, bool, error) {
		r, ok, err := next()
		if err != nil || !ok {
			return nil, ok, err
		}
		return r, true, nil
	}, nil
}

func (a *Adapter) Process(ctx context.Context, rec ingestion.Record) ingestion.ProcessResult {
	r, ok := rec.(Record)
	if !ok {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Err: fmt.Errorf("invalid Canada Corps record")}
	}
	if r.CorpNumber == "" {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Err: fmt.Errorf("missing corporation number")}
	}

	jurisdiction := r.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = "CA"
	}

	result, err := a.writer.UpsertNode(ctx, &models.Entity{
		Type:         models.EntityOrganization,
		Name:         r.Name,
		Confidence:   1.0,
		ExternalIDs:  map[string]string{models.IDCanadaCorpNum: r.CorpNumber},
		OrgType:      MapOrgType(r.ActCode),
		Status:       MapStatus(r.StatusCode),
		Jurisdiction: jurisdiction,
		IsCanadian:   true,
	}, &models.Evidence{
		EvidenceType:         "canada_corps_bulk_xml",
		RetrievedAt:          time.Now(),
		ExtractorName:        "canadacorps_adapter",
		ExtractorVersion:     "1.0.0",
		ExtractionConfidence: 1.0,
	})
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: r.CorpNumber, Err: err}
	}

	outcome := ingestion.OutcomeUpdated
	if result.Created {
		outcome = ingestion.OutcomeCreated
	}
	return ingestion.ProcessResult{Outcome: outcome, EntityID: result.ID, Ident: r.CorpNumber}
}
