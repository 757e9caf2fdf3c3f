// Package bestEffort implements the lower-priority, best-effort source
// adapters (§4.4, §9): SEDAR+, CanLII, PPSA registrations, LittleSis, and
// OpenCorporates. Each source is reachable only through scraping or a
// narrow public API with no stable schema guarantee, so per the resolved
// Open Question these adapters treat "no recognizable structure in this
// page" as zero records rather than a fatal error — only a genuine
// transport/fetch failure fails the run (§4.4 O4).
package bestEffort

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mitds/internal/graph"
	"mitds/internal/ingestion"
	"mitds/internal/models"
)

// Source identifies which best-effort source produced a Record.
type Source string

const (
	SourceSEDAR        Source = "sedar_plus"
	SourceCanLII       Source = "canlii"
	SourcePPSA         Source = "ppsa_registrations"
	SourceLittleSis    Source = "littlesis"
	SourceOpenCorp     Source = "opencorporates"
)

// Record is a loosely-typed best-effort entity/relationship observation.
// Unlike the strongly-typed adapters, these sources surface heterogeneous
// shapes (a filing, a case citation, a security registration, a person-org
// link) behind one Record so a single Adapter can serve all five.
type Record struct {
	Source        Source
	RecordKey     string
	EntityType    models.EntityType
	Name          string
	ExternalID    string
	ExternalIDKey string
	Jurisdiction  string
	RelatedName   string
	RelatedType   models.EntityType
	EdgeType      models.EdgeType
	EdgeProps     map[string]any
	Confidence    float64
}

func (r Record) RecordID() string { return fmt.Sprintf("%s|%s", r.Source, r.RecordKey) }

// ParseGenericListing is a permissive HTML-table/list scraper shared by the
// best-effort sources: it looks for anchor text inside list or table rows
// and returns candidate names with no guarantee of completeness. Pages that
// don't match the expected shape yield an empty, non-error result — the
// per-source fetch closures decide whether an empty page is suspicious
// enough to log as a warning.
func ParseGenericListing(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var names []string
	doc.Find("table tr td a, ul li a, ol li a").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			names = append(names, text)
		}
	})
	return names
}

type FetchFunc func(ctx context.Context, cfg ingestion.RunConfig) (func() (Record, bool, error), error)

// Adapter implements ingestion.Adapter across all five best-effort sources;
// New is called once per source with a source-specific fetch closure and
// Source() label.
type Adapter struct {
	source string
	fetch  FetchFunc
	writer *graph.Writer
}

func New(source string, fetch FetchFunc, writer *graph.Writer) *Adapter {
	return &Adapter{source: source, fetch: fetch, writer: writer}
}

func (a *Adapter) Source() string { return a.source }

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
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Err: fmt.Errorf("invalid best-effort record")}
	}
	if r.Name == "" {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeSkipped, Ident: r.RecordKey}
	}

	confidence := r.Confidence
	if confidence == 0 {
		confidence = 0.5
	}

	externalIDs := map[string]string{}
	if r.ExternalID != "" && r.ExternalIDKey != "" {
		externalIDs[r.ExternalIDKey] = r.ExternalID
	}

	entityType := r.EntityType
	if entityType == "" {
		entityType = models.EntityOrganization
	}

	primaryResult, err := a.writer.UpsertNode(ctx, &models.Entity{
		Type:         entityType,
		Name:         r.Name,
		Confidence:   confidence,
		ExternalIDs:  externalIDs,
		Jurisdiction: r.Jurisdiction,
	}, &models.Evidence{
		EvidenceType:         string(r.Source),
		RetrievedAt:          time.Now(),
		ExtractorName:        "bestEffort_adapter",
		ExtractorVersion:     "1.0.0",
		ExtractionConfidence: confidence,
	})
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: r.RecordKey, Err: err}
	}

	if r.RelatedName == "" || r.EdgeType == "" {
		outcome := ingestion.OutcomeUpdated
		if primaryResult.Created {
			outcome = ingestion.OutcomeCreated
		}
		return ingestion.ProcessResult{Outcome: outcome, EntityID: primaryResult.ID, Ident: r.RecordKey}
	}

	relatedType := r.RelatedType
	if relatedType == "" {
		relatedType = models.EntityPerson
	}
	relatedResult, err := a.writer.UpsertNode(ctx, &models.Entity{
		Type: relatedType, Name: r.RelatedName, Confidence: confidence,
	}, nil)
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: r.RecordKey, Err: err}
	}

	edgeResult, err := a.writer.UpsertEdge(ctx, &models.Edge{
		Type:       r.EdgeType,
		SourceID:   relatedResult.ID,
		TargetID:   primaryResult.ID,
		Confidence: confidence,
		Properties: r.EdgeProps,
	}, nil)
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: r.RecordKey, Err: err}
	}

	outcome := ingestion.OutcomeUpdated
	if edgeResult.Created {
		outcome = ingestion.OutcomeCreated
	}
	return ingestion.ProcessResult{Outcome: outcome, EntityID: edgeResult.ID, Ident: r.RecordKey}
}
