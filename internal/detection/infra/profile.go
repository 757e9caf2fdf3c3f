// Package infra implements the infrastructure-sharing detector (§4.6):
// concurrent DNS/WHOIS/hosting/analytics/SSL probing per domain, followed by
// a pairwise, symmetric comparison that accumulates weighted signals into a
// SHARED_INFRA match. Probing concurrency is grounded on the teacher's
// errgroup usage pattern elsewhere in the pack; the exact signal weights and
// pattern tables are reproduced verbatim from the original detector.
package infra

import "time"

// DNSResult is the resolved A-record set and nameservers for a domain.
type DNSResult struct {
	Domain       string
	ARecords     []string
	Nameservers  []string
	Err          error
}

// WHOISResult is the normalized registrar for a domain.
type WHOISResult struct {
	Domain   string
	Registrar string
	Err      error
}

// HostingResult is the ASN/hosting-provider classification for one IP.
type HostingResult struct {
	IPAddress       string
	ASN             string
	HostingProvider string
	CDNProvider     string
	IsSharedHosting bool
	Err             error
}

// AnalyticsResult is the set of tracking identifiers scraped from a
// domain's homepage.
type AnalyticsResult struct {
	Domain               string
	GoogleAnalyticsIDs   []string
	GoogleTagManagerIDs  []string
	FacebookPixelIDs     []string
	AdsenseIDs           []string
	CMSDetected          string
	Err                  error
}

// SSLResult is the issuer and subject-alt-name set for a domain's
// certificate.
type SSLResult struct {
	Domain          string
	Issuer          string
	SubjectAltNames []string
	Err             error
}

// Profile is the complete infrastructure fingerprint for one domain.
type Profile struct {
	Domain    string
	ScannedAt time.Time
	DNS       *DNSResult
	WHOIS     *WHOISResult
	Hosting   []HostingResult
	Analytics *AnalyticsResult
	SSL       *SSLResult
}

// Signal is one scored infrastructure-sharing observation (§4.6).
type Signal struct {
	SignalType  string
	Value       string
	Weight      float64
	Description string
}

// Match is the accumulated scored comparison between two domains.
type Match struct {
	DomainA    string
	DomainB    string
	Signals    []Signal
	TotalScore float64
	Confidence float64
}

func (m *Match) addSignal(s Signal) {
	m.Signals = append(m.Signals, s)
	m.TotalScore += s.Weight
	m.Confidence = m.TotalScore / 10.0
	if m.Confidence > 1.0 {
		m.Confidence = 1.0
	}
}

// SharingCategory classifies a match for display/storage, matching the
// original detector's priority order: analytics > hosting > certificate >
// infrastructure.
func (m *Match) SharingCategory() string {
	has := func(t string) bool {
		for _, s := range m.Signals {
			if s.SignalType == t {
				return true
			}
		}
		return false
	}
	switch {
	case has(SameAnalytics) || has(SameGTM) || has(SameAdsense):
		return "analytics"
	case has(SameIP):
		return "hosting"
	case has(SSLSANOverlap):
		return "certificate"
	default:
		return "infrastructure"
	}
}
