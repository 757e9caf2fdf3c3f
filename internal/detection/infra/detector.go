package infra

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Clock is injectable for deterministic ScannedAt stamping in tests.
type Clock func() time.Time

// Detector orchestrates per-domain profiling and pairwise comparison.
type Detector struct {
	dns       *DNSProbe
	whois     *WHOISProbe
	hosting   *HostingProbe
	analytics *AnalyticsProbe
	ssl       *SSLProbe
	now       Clock
}

func New(dns *DNSProbe, whois *WHOISProbe, hosting *HostingProbe, analytics *AnalyticsProbe, ssl *SSLProbe, now Clock) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{dns: dns, whois: whois, hosting: hosting, analytics: analytics, ssl: ssl, now: now}
}

// AnalyzeDomain runs DNS, WHOIS, analytics, and SSL probes concurrently
// (§9), then issues hosting-provider lookups for up to the first 5
// resolved A records — mirroring the original detector's per-domain
// concurrency.
func (d *Detector) AnalyzeDomain(ctx context.Context, domain string) Profile {
	profile := Profile{Domain: domain, ScannedAt: d.now()}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r := d.dns.Lookup(gctx, domain)
		profile.DNS = &r
		return nil
	})
	g.Go(func() error {
		r := d.whois.Lookup(gctx, domain)
		profile.WHOIS = &r
		return nil
	})
	g.Go(func() error {
		r := d.analytics.Detect(gctx, domain)
		profile.Analytics = &r
		return nil
	})
	g.Go(func() error {
		r := d.ssl.Analyze(gctx, domain)
		profile.SSL = &r
		return nil
	})
	_ = g.Wait() // each probe absorbs its own error into its result's Err field

	if profile.DNS != nil && profile.DNS.Err == nil {
		ips := profile.DNS.ARecords
		if len(ips) > 5 {
			ips = ips[:5]
		}
		hg, hgctx := errgroup.WithContext(ctx)
		results := make([]HostingResult, len(ips))
		for i, ip := range ips {
			i, ip := i, ip
			hg.Go(func() error {
				results[i] = d.hosting.Detect(hgctx, ip)
				return nil
			})
		}
		_ = hg.Wait()
		profile.Hosting = results
	}

	return profile
}

// FindSharedInfrastructure profiles every domain concurrently and returns
// every pairwise match scoring at or above minScore, sorted by descending
// total score (§4.6).
func (d *Detector) FindSharedInfrastructure(ctx context.Context, domains []string, minScore float64) ([]Match, error) {
	profiles := make([]Profile, len(domains))
	g, gctx := errgroup.WithContext(ctx)
	for i, domain := range domains {
		i, domain := i, domain
		g.Go(func() error {
			profiles[i] = d.AnalyzeDomain(gctx, domain)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var matches []Match
	for i := 0; i < len(profiles); i++ {
		for j := i + 1; j < len(profiles); j++ {
			m := Compare(profiles[i], profiles[j])
			if m.TotalScore >= minScore {
				matches = append(matches, m)
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].TotalScore > matches[j].TotalScore })
	return matches, nil
}

// DefaultMinScore is the detector's default inclusion threshold (§4.6).
const DefaultMinScore = 1.0
