// Package cra implements the CRA charities source adapter (§4.4):
// monthly bulk CSVs for identification, financials, and qualified donees
// are downloaded and joined by Business Number (BN); Organization nodes
// and FUNDED_BY edges are emitted.
package cra

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"mitds/internal/graph"
	"mitds/internal/ingestion"
	"mitds/internal/models"
)

// bnRE validates and captures the normalized BN form \d{9}RR\d{4}.
var bnRE = regexp.MustCompile(`^(\d{9})RR(\d{4})$`)

// NormalizeBN validates raw against the required BN form.
func NormalizeBN(raw string) (string, error) {
	if !bnRE.MatchString(raw) {
		return "", fmt.Errorf("BN %q does not match required form \\d{9}RR\\d{4}", raw)
	}
	return raw, nil
}

// Record is one charity's identification + qualified-donee grant rows for
// a fiscal period, pre-joined by BN.
type Record struct {
	BN             string
	Name           string
	FiscalYearEnd  time.Time
	Grants         []Grant
}

func (r Record) RecordID() string { return r.BN }

// Grant is a qualified-donee disbursement row.
type Grant struct {
	RecipientBN   string
	RecipientName string
	Amount        float64
}

type FetchFunc func(ctx context.Context, cfg ingestion.RunConfig) (func() (Record, bool, error), error)

// Adapter implements ingestion.Adapter for CRA charities bulk data.
type Adapter struct {
	fetch  FetchFunc
	writer *graph.Writer
}

func New(fetch FetchFunc, writer *graph.Writer) *Adapter {
	return &Adapter{fetch: fetch, writer: writer}
}

func (a *Adapter) Source() string { return "cra_charities" }

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
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Err: fmt.Errorf("invalid CRA record")}
	}

	bn, err := NormalizeBN(r.BN)
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: r.BN, Err: err}
	}

	orgResult, err := a.writer.UpsertNode(ctx, &models.Entity{
		Type:         models.EntityOrganization,
		Name:         r.Name,
		Confidence:   1.0,
		ExternalIDs:  map[string]string{models.IDBn: bn},
		OrgType:      models.OrgNonprofit,
		Status:       models.StatusActive,
		Jurisdiction: "CA",
		IsCanadian:   true,
	}, &models.Evidence{
		EvidenceType:     "cra_charities_identification",
		RetrievedAt:      time.Now(),
		ExtractorName:    "cra_adapter",
		ExtractorVersion: "1.0.0",
		ExtractionConfidence: 1.0,
	})
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: bn, Err: err}
	}

	for _, g := range r.Grants {
		recipResult, err := a.writer.UpsertNode(ctx, &models.Entity{
			Type:       models.EntityOrganization,
			Name:       g.RecipientName,
			Confidence: 0.7,
		}, nil)
		if err != nil {
			continue
		}
		_, _ = a.writer.UpsertEdge(ctx, &models.Edge{
			Type:       models.EdgeFundedBy,
			SourceID:   recipResult.ID,
			TargetID:   orgResult.ID,
			Confidence: 0.8,
			Properties: map[string]any{
				"amount":        g.Amount,
				"currency":      "CAD",
				"fiscal_year":   r.FiscalYearEnd.Year(),
				"grant_purpose": "qualified_donee_disbursement",
			},
		}, nil)
	}

	outcome := ingestion.OutcomeUpdated
	if orgResult.Created {
		outcome = ingestion.OutcomeCreated
	}
	return ingestion.ProcessResult{Outcome: outcome, EntityID: orgResult.ID, Ident: bn}
}
