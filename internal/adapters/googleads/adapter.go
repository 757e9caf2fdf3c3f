// Package googleads implements the Google Political Ads source adapter
// (§4.4): queries the public BigQuery dataset parameterized by country
// (regions = 'CA' for Canada); shape matches the Meta Ads adapter except
// identifiers differ.
package googleads

import (
	"context"
	"fmt"
	"time"

	"mitds/internal/graph"
	"mitds/internal/ingestion"
	"mitds/internal/models"
)

// Ad is one parsed Google Political Ads Transparency Report row.
type Ad struct {
	AdID         string
	AdvertiserID string
	AdvertiserName string
	CreativeText string
	SpendLower   float64
	SpendUpper   float64
	Currency     string
	FirstShown   time.Time
	Region       string
}

func (a Ad) RecordID() string { return a.AdID }

type FetchFunc func(ctx context.Context, cfg ingestion.RunConfig) (func() (Ad, bool, error), error)

// Adapter implements ingestion.Adapter for Google Political Ads.
type Adapter struct {
	fetch  FetchFunc
	writer *graph.Writer
}

func New(fetch FetchFunc, writer *graph.Writer) *Adapter {
	return &Adapter{fetch: fetch, writer: writer}
}

func (a *Adapter) Source() string { return "google_political_ads" }

func (a *Adapter) Fetch(ctx context.Context, cfg ingestion.RunConfig) (func() (ingestion.Record, bool, error), error) {
	next, err := a.fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return func() (ingestion.Record, bool, error) {
		ad, ok, err := next()
		if err != nil || !ok {
			return nil, ok, err
		}
		return ad, true, nil
	}, nil
}

func (a *Adapter) Process(ctx context.Context, rec ingestion.Record) ingestion.ProcessResult {
	ad, ok := rec.(Ad)
	if !ok {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Err: fmt.Errorf("invalid google ads record")}
	}

	sponsorResult, err := a.writer.UpsertNode(ctx, &models.Entity{
		Type:        models.EntitySponsor,
		Name:        ad.AdvertiserName,
		Confidence:  0.9,
		ExternalIDs: map[string]string{"google_advertiser_id": ad.AdvertiserID},
	}, nil)
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: ad.AdID, Err: err}
	}

	firstShown := ad.FirstShown
	adResult, err := a.writer.UpsertNode(ctx, &models.Entity{
		Type:         models.EntityAd,
		Name:         fmt.Sprintf("google ad %s", ad.AdID),
		Confidence:   0.9,
		Platform:     "google",
		PlatformAdID: ad.AdID,
		CreationTime: &firstShown,
		SpendLower:   ad.SpendLower,
		SpendUpper:   ad.SpendUpper,
		CreativeText: ad.CreativeText,
	}, &models.Evidence{
		EvidenceType:         "google_political_ads_entry",
		RetrievedAt:          time.Now(),
		ExtractorName:        "googleads_adapter",
		ExtractorVersion:     "1.0.0",
		ExtractionConfidence: 0.9,
	})
	if err != nil {
		return ingestion.ProcessResult{Outcome: ingestion.OutcomeFailed, Ident: ad.AdID, Err: err}
	}

	_, _ = a.writer.UpsertEdge(ctx, &models.Edge{
		Type:       models.EdgeSponsoredBy,
		SourceID:   adResult.ID,
		TargetID:   sponsorResult.ID,
		Confidence: 0.9,
		Properties: map[string]any{
			"spend_lower": ad.SpendLower,
			"spend_upper": ad.SpendUpper,
			"currency":    ad.Currency,
			"country":     ad.Region,
		},
	}, nil)

	outcome := ingestion.OutcomeUpdated
	if adResult.Created {
		outcome = ingestion.OutcomeCreated
	}
	return ingestion.ProcessResult{Outcome: outcome, EntityID: adResult.ID, Ident: ad.AdID}
}
