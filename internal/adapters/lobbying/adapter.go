// Package lobbying implements the federal + provincial lobbying registry
// source adapter (§4.4): registration ZIPs are parsed into side-table
// maps of subject matters / institutions / beneficiaries keyed by
// registration id, emitting LOBBIES_FOR (person -> client org) and
// LOBBIED (client org -> government) with the registration id as merge
// key. Registration type code "1" maps to consultant, "3" to in-house.
package lobbying

import (
	"context"
	"fmt"
	"time"

	"mitds/internal/graph"
	"mitds/internal/ingestion"
	"mitds/internal/models"
)

// RegistrationTypeCode maps the registry's numeric type code to a label.
var RegistrationTypeCode = map[string]string{
	"1": "consultant",
	"3": "in_house",
}

// Registration is one parsed lobbying registration.
type Registration struct {
	RegistrationID string
	LobbyistName   string
	ClientOrgName  string
	GovernmentName string
	TypeCode       string
	SubjectMatters []string
	Jurisdiction   string
}

func (r Registration) RecordID() string { return r.RegistrationID }

type FetchFunc func(ctx context.Context, cfg ingestion.RunConfig) (func() (Registration, bool, error), error)

// Adapter implements ingestion.Adapter for lobbying registries.
type Adapter struct {
	fetch  FetchFunc
	writer *graph.Writer
}

func New(fetch FetchFunc, writer *graph.Writer) *Adapter {
	return &Adapter{fetch: fetch, writer: writer}
}

func (a *Adapter) Source() string { return "lobbying_registry" }

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
	r, ok := rec.(Registration)
	if !ok {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Err: fmt.Errorf("invalid lobbying record")}
	}
	if r.RegistrationID == "" {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Err: fmt.Errorf("missing registration id")}
	}

	lobbyistResult, err := a.writer.UpsertNode(ctx, &models.Entity{
		Type: models.EntityPerson, Name: r.LobbyistName, Confidence: 0.8,
	}, nil)
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: r.RegistrationID, Err: err}
	}
	clientResult, err := a.writer.UpsertNode(ctx, &models.Entity{
		Type: models.EntityOrganization, Name: r.ClientOrgName, Confidence: 0.8, Jurisdiction: r.Jurisdiction,
	}, nil)
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: r.RegistrationID, Err: err}
	}
	govResult, err := a.writer.UpsertNode(ctx, &models.Entity{
		Type: models.EntityGovernment, Name: r.GovernmentName, Confidence: 0.9,
		Institution: r.GovernmentName, IsGovernment: true, Jurisdiction: r.Jurisdiction,
	}, &models.Evidence{
		EvidenceType:         "lobbying_registration",
		RetrievedAt:          time.Now(),
		ExtractorName:        "lobbying_adapter",
		ExtractorVersion:     "1.0.0",
		ExtractionConfidence: 0.9,
	})
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: r.RegistrationID, Err: err}
	}

	props := map[string]any{
		"registration_id": r.RegistrationID,
		"subject_matters": r.SubjectMatters,
		"jurisdiction":    r.Jurisdiction,
		"registration_type": RegistrationTypeCode[r.TypeCode],
	}

	lobbiesResult, err := a.writer.UpsertEdge(ctx, &models.Edge{
		Type: models.EdgeLobbiesFor, SourceID: lobbyistResult.ID, TargetID: clientResult.ID,
		Confidence: 0.8, Properties: props,
	}, nil)
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: r.RegistrationID, Err: err}
	}
	_, _ = a.writer.UpsertEdge(ctx, &models.Edge{
		Type: models.EdgeLobbied, SourceID: clientResult.ID, TargetID: govResult.ID,
		Confidence: 0.8, Properties: props,
	}, nil)

	outcome := ingestion.OutcomeUpdated
	if lobbiesResult.Created {
		outcome = ingestion.OutcomeCreated
	}
	return ingestion.ProcessResult{Outcome: outcome, EntityID: lobbiesResult.ID, Ident: r.RegistrationID}
}
