package edgar

import (
	"context"
	"fmt"
	"time"

	"mitds/internal/graph"
	"mitds/internal/ingestion"
	"mitds/internal/models"
	"mitds/internal/provenance"
	"mitds/internal/resolver"
)

// Record is one CIK's submissions document paired with the requesting CIK.
type Record struct {
	CIK     string
	Info    *CompanyInfo
	RawJSON []byte
}

func (r Record) RecordID() string { return r.CIK }

// Adapter implements ingestion.Adapter for SEC EDGAR.
type Adapter struct {
	client   *Client
	writer   *graph.Writer
	resolver *resolver.Resolver
	prov     *provenance.Store
}

func New(client *Client, writer *graph.Writer, res *resolver.Resolver, prov *provenance.Store) *Adapter {
	return &Adapter{client: client, writer: writer, resolver: res, prov: prov}
}

func (a *Adapter) Source() string { return "sec_edgar" }

// Fetch walks the CIK list in cfg.TargetEntities sequentially, keeping the
// fetcher single-threaded
// per §5 axis 2 ("records produced by a single lazy fetcher").
func (a *Adapter) Fetch(ctx context.Context, cfg ingestion.RunConfig) (func() (ingestion.Record, bool, error), error) {
	ciks := cfg.TargetEntities
	idx := 0
	return func() (ingestion.Record, bool, error) {
		if idx >= len(ciks) {
			return nil, false, nil
		}
		cik := ciks[idx]
		idx++
		info, raw, err := a.client.FetchCompanyInfo(ctx, cik)
		if err != nil {
			return nil, true, err
		}
		return Record{CIK: cik, Info: info, RawJSON: raw}, true, nil
	}, nil
}

// Process maps a CompanyInfo document to an Organization node per §3/§4.4:
// Canadian jurisdiction is derived solely from stateOfIncorporation via the
// fixed code table (I5), never from free-text name inspection. Per S2, a
// Canadian stateOfIncorporation code normalizes jurisdiction to "CA";
// everything else defaults to "US" absent a value.
func (a *Adapter) Process(ctx context.Context, rec ingestion.Record) ingestion.ProcessResult {
	r, ok := rec.(Record)
	if !ok || r.Info == nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Err: fmt.Errorf("invalid EDGAR record")}
	}
	info := r.Info
	now := time.Now()

	isCanadian := IsCanadianJurisdiction(info.StateOfIncorporation)
	jurisdiction := info.StateOfIncorporation
	switch {
	case isCanadian:
		jurisdiction = "CA"
	case jurisdiction == "":
		jurisdiction = "US"
	}

	entity := &models.Entity{
		Type:         models.EntityOrganization,
		Name:         info.Name,
		Confidence:   1.0,
		ExternalIDs:  map[string]string{models.IDSecCik: info.CIK},
		OrgType:      models.OrgCorporation,
		Status:       models.StatusActive,
		Jurisdiction: jurisdiction,
		IsCanadian:   isCanadian,
		SIC:          info.SIC,
		SICDesc:      info.SICDescription,
		FiscalYearEnd: info.FiscalYearEnd,
		Tickers:      info.Tickers,
		Exchanges:    info.Exchanges,
	}

	rawKey, rawHash, err := a.prov.PutRaw(ctx, a.Source(), now, info.CIK, "json", r.RawJSON)
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: info.CIK, Err: err}
	}

	evidence := &models.Evidence{
		EvidenceType:     "sec_edgar_submissions",
		SourceURL:        fmt.Sprintf("https://data.sec.gov/submissions/CIK%s.json", info.CIK),
		RetrievedAt:      now,
		ExtractorName:    "edgar_adapter",
		ExtractorVersion: "1.0.0",
		ExtractionConfidence: 1.0,
		RawDataKey:       rawKey,
		ContentHash:      rawHash,
	}

	result, err := a.writer.UpsertNode(ctx, entity, evidence)
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: info.CIK, Err: err}
	}

	outcome := ingestion.OutcomeUpdated
	if result.Created {
		outcome = ingestion.OutcomeCreated
	}
	return ingestion.ProcessResult{Outcome: outcome, EntityID: result.ID, Ident: info.CIK}
}
