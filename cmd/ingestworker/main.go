// Command ingestworker is the process entrypoint wiring config, storage,
// the ingestion framework, one or more source adapters, and the three
// detection engines into a single run. It is not a general CLI (§1, §6
// name ingestion and detection as library operations, not a command
// surface) — it is the minimal "run everything once" driver a deployment
// invokes on a schedule, grounded on the teacher's cmd/pipeline/main.go
// as a single wiring-and-run binary.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"mitds/internal/config"
	"mitds/internal/detection/funding"
	"mitds/internal/detection/infra"
	"mitds/internal/graph"
	"mitds/internal/ingestion"
	"mitds/internal/models"
	"mitds/internal/provenance"
	"mitds/internal/resolver"
	"mitds/internal/scoring"
	"mitds/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"

	"mitds/internal/adapters/edgar"
	"mitds/internal/adapters/irs990"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("ingestworker: %v", err)
	}
}

func run(ctx context.Context) error {
	envPath := os.Getenv("MITDS_ENV_FILE")
	if envPath == "" {
		envPath = ".env"
	}
	yamlPath := os.Getenv("MITDS_CONFIG_FILE")
	if yamlPath == "" {
		yamlPath = "config.yaml"
	}

	cfg, err := config.Load(envPath, yamlPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := store.Init(ctx, cfg.RelationalDSN); err != nil {
		return fmt.Errorf("init relational store: %w", err)
	}
	defer store.Close()
	pool := store.Pool()

	prov, err := provenance.New(ctx, provenance.Config{
		Bucket:   cfg.ObjectStore.Bucket,
		Region:   cfg.ObjectStore.Region,
		Endpoint: cfg.ObjectStore.Endpoint,
		Prefix:   cfg.ObjectStore.Prefix,
	})
	if err != nil {
		return fmt.Errorf("init provenance store: %w", err)
	}

	writer := graph.New(pool, nil)
	res := resolver.New(resolver.NewPostgresGraphView(pool))

	runs := store.NewRunRepo(pool)
	framework := ingestion.NewFramework(runs, ingestion.DefaultRetryConfig(), ingestion.DefaultServiceLimiters())

	adapters := buildAdapters(writer, res, prov)

	for _, a := range adapters {
		runCfg := ingestion.RunConfig{Incremental: true}
		result, err := framework.Run(ctx, a, runCfg)
		if err != nil {
			slog.Error("adapter run failed to start", "source", a.Source(), "err", err)
			continue
		}
		slog.Info("adapter run finished", "source", result.Source, "status", result.Status,
			"created", result.RecordsCreated, "updated", result.RecordsUpdated, "errors", len(result.Errors))
	}

	if err := runDetection(ctx, pool, writer); err != nil {
		return fmt.Errorf("run detection: %w", err)
	}
	return nil
}

// buildAdapters returns the source adapters this driver runs (§4.4, §6):
// sec_edgar, and irs_990 with a fetch cursor that yields no records. The
// other adapter packages (cra, canadacorps, metaads, googleads, lobbying,
// elections, bestEffort) are not constructed here, and the config toggles
// are not consulted.
func buildAdapters(writer *graph.Writer, res *resolver.Resolver, prov *provenance.Store) []ingestion.Adapter {
	noopFetch := func(ctx context.Context, cfg ingestion.RunConfig) (func() (irs990.Filing, bool, error), error) {
		done := false
		return func() (irs990.Filing, bool, error) {
			if done {
				return irs990.Filing{}, false, nil
			}
			done = true
			return irs990.Filing{}, false, nil
		}, nil
	}
	return []ingestion.Adapter{
		irs990.New(noopFetch, writer, prov),
		edgar.New(edgar.NewClient(), writer, res, prov),
	}
}

// runDetection runs the funding-cluster and infrastructure-sharing
// detectors over current graph state and persists the infrastructure
// findings as SHARED_INFRA edges (§4.5, §4.6). Temporal coordination
// (§4.7) runs over domain-specific event streams (ad-buy timestamps,
// publication timestamps) an adapter supplies, not graph-wide state, so
// it is omitted from this generic pass; composite scoring (§4.8) fuses
// signals from all three once a caller has assembled them for a
// specific entity set, demonstrated here over the funding clusters.
func runDetection(ctx context.Context, pool *pgxpool.Pool, writer *graph.Writer) error {
	fundingDetector := funding.New(funding.NewPostgresGraphSource(pool), funding.DefaultConfig())
	clusters, err := fundingDetector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("funding detection: %w", err)
	}
	for _, c := range clusters {
		slog.Info("funding cluster detected", "members", len(c.Members), "score", c.Score, "summary", c.Summary)
	}

	outletsByDomain, err := distinctOutletDomains(ctx, pool)
	if err != nil {
		return fmt.Errorf("list outlet domains: %w", err)
	}
	if len(outletsByDomain) >= 2 {
		domains := make([]string, 0, len(outletsByDomain))
		for d := range outletsByDomain {
			domains = append(domains, d)
		}

		// No WHOIS library appears anywhere in the reference corpus, so
		// WHOISProbe's lookup is injected; unimplementedWHOIS reports no
		// registrar rather than hand-rolling the WHOIS wire protocol.
		infraDetector := infra.New(
			infra.NewDNSProbe(),
			infra.NewWHOISProbe(unimplementedWHOIS),
			infra.NewHostingProbe(nil),
			infra.NewAnalyticsProbe(nil),
			infra.NewSSLProbe(5*time.Second),
			time.Now,
		)
		matches, err := infraDetector.FindSharedInfrastructure(ctx, domains, infra.DefaultMinScore)
		if err != nil {
			return fmt.Errorf("infrastructure detection: %w", err)
		}
		for _, m := range matches {
			if err := persistSharedInfra(ctx, writer, outletsByDomain[m.DomainA], outletsByDomain[m.DomainB], m); err != nil {
				slog.Error("persist shared infra edge", "domainA", m.DomainA, "domainB", m.DomainB, "err", err)
			}
		}
	}

	if len(clusters) > 0 {
		var signals []scoring.Signal
		for _, c := range clusters {
			signals = append(signals, scoring.Signal{
				Type:       scoring.SignalSharedFunder,
				Strength:   c.Score,
				Confidence: c.Confidence,
				EntityIDs:  c.Members,
			})
		}
		result := scoring.Score(signals)
		slog.Info("composite score", "flagged", result.IsFlagged, "adjusted", result.AdjustedScore,
			"confidence_low", result.ConfidenceLow, "confidence_high", result.ConfidenceHigh)
	}
	return nil
}

// distinctOutletDomains maps each Outlet entity's homepage domain back to
// its entity id, the population the infrastructure-sharing detector scans
// pairwise and the id pair SHARED_INFRA edges connect.
func distinctOutletDomains(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, attrs->'domains'->>0 FROM entities
		WHERE entity_type = $1 AND attrs->'domains'->>0 IS NOT NULL AND attrs->'domains'->>0 != ''
	`, models.EntityOutlet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var id, domain string
		if err := rows.Scan(&id, &domain); err != nil {
			return nil, err
		}
		out[domain] = id
	}
	return out, rows.Err()
}

// unimplementedWHOIS is the injected WHOISLookup for environments with no
// WHOIS client available; registrar-based signals simply score zero.
func unimplementedWHOIS(ctx context.Context, domain string) (string, error) {
	return "", nil
}

// persistSharedInfra converts a detector Match into the graph writer's
// SHARED_INFRA edge shape and commits it (§6).
func persistSharedInfra(ctx context.Context, writer *graph.Writer, outletA, outletB string, m infra.Match) error {
	if outletA == "" || outletB == "" {
		return fmt.Errorf("unresolved outlet entity for domain pair %s/%s", m.DomainA, m.DomainB)
	}
	signals := make([]models.SharedInfraSignal, len(m.Signals))
	for i, s := range m.Signals {
		signals[i] = models.SharedInfraSignal{SignalType: s.SignalType, Value: s.Value, Weight: s.Weight}
	}
	_, err := writer.CreateSharedInfra(ctx, outletA, outletB, signals, m.TotalScore, m.SharingCategory(), &models.Evidence{
		EvidenceType:         "infrastructure_sharing_scan",
		RetrievedAt:          time.Now(),
		ExtractorName:        "infra_detector",
		ExtractorVersion:     "1.0.0",
		ExtractionConfidence: 1.0,
	})
	return err
}
