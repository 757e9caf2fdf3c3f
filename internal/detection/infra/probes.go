package infra

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"time"
)

// DNSProbe resolves A records and nameservers for a domain.
type DNSProbe struct {
	Resolver *net.Resolver
}

func NewDNSProbe() *DNSProbe { return &DNSProbe{Resolver: net.DefaultResolver} }

func (p *DNSProbe) Lookup(ctx context.Context, domain string) DNSResult {
	result := DNSResult{Domain: domain}
	ips, err := p.Resolver.LookupHost(ctx, domain)
	if err != nil {
		result.Err = fmt.Errorf("lookup A records for %s: %w", domain, err)
		return result
	}
	result.ARecords = ips

	if ns, err := p.Resolver.LookupNS(ctx, domain); err == nil {
		for _, n := range ns {
			result.Nameservers = append(result.Nameservers, n.Host)
		}
	}
	return result
}

// WHOISLookup is a pluggable registrar lookup; no WHOIS client library
// exists anywhere in the retrieved pack, so callers inject their own (a
// thin RDAP/WHOIS HTTP client, or a fixture in tests) rather than this
// package hand-rolling a WHOIS wire client.
type WHOISLookup func(ctx context.Context, domain string) (registrar string, err error)

type WHOISProbe struct {
	lookup WHOISLookup
}

func NewWHOISProbe(lookup WHOISLookup) *WHOISProbe { return &WHOISProbe{lookup: lookup} }

func (p *WHOISProbe) Lookup(ctx context.Context, domain string) WHOISResult {
	result := WHOISResult{Domain: domain}
	if p.lookup == nil {
		return result
	}
	raw, err := p.lookup(ctx, domain)
	if err != nil {
		result.Err = err
		return result
	}
	result.Registrar = NormalizeRegistrar(raw)
	return result
}

// HostingProbe classifies an IP's hosting provider/ASN via ip-api.com, the
// same free lookup service the original detector calls.
type HostingProbe struct {
	client *http.Client
}

func NewHostingProbe(client *http.Client) *HostingProbe {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HostingProbe{client: client}
}

var asnFieldRE = regexp.MustCompile(`^(AS\d+)`)

type ipAPIResponse struct {
	Status  string `json:"status"`
	ISP     string `json:"isp"`
	Org     string `json:"org"`
	AS      string `json:"as"`
	Hosting bool   `json:"hosting"`
}

func (p *HostingProbe) Detect(ctx context.Context, ip string) HostingResult {
	result := HostingResult{IPAddress: ip}
	result.HostingProvider = MatchIPPattern(ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("http://ip-api.com/json/%s?fields=status,isp,org,as,hosting", ip), nil)
	if err != nil {
		result.Err = err
		return result
	}
	resp, err := p.client.Do(req)
	if err != nil {
		result.Err = fmt.Errorf("ip-api lookup for %s: %w", ip, err)
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Err = err
		return result
	}
	var data ipAPIResponse
	if err := json.Unmarshal(body, &data); err != nil || data.Status != "success" {
		return result
	}
	result.IsSharedHosting = data.Hosting
	if m := asnFieldRE.FindStringSubmatch(data.AS); m != nil {
		result.ASN = m[1]
		if hosting, cdn := ResolveASNProvider(result.ASN); hosting != "" || cdn != "" {
			if hosting != "" {
				result.HostingProvider = hosting
			}
			result.CDNProvider = cdn
		}
	}
	return result
}

// AnalyticsProbe fetches a domain's homepage and scans for tracking IDs.
type AnalyticsProbe struct {
	client    *http.Client
	userAgent string
}

func NewAnalyticsProbe(client *http.Client) *AnalyticsProbe {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &AnalyticsProbe{
		client:    client,
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	}
}

func (p *AnalyticsProbe) Detect(ctx context.Context, domain string) AnalyticsResult {
	result := AnalyticsResult{Domain: domain}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("https://%s", domain), nil)
	if err != nil {
		result.Err = err
		return result
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		result.Err = fmt.Errorf("fetch %s: %w", domain, err)
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Err = err
		return result
	}
	html := string(body)

	result.GoogleAnalyticsIDs = findAllUnique(html, googleAnalyticsPatterns)
	result.GoogleTagManagerIDs = findAllUnique(html, []*regexp.Regexp{googleTagManagerPattern})
	result.FacebookPixelIDs = findGroupUnique(html, facebookPixelPattern)
	result.AdsenseIDs = findAllUnique(html, []*regexp.Regexp{adsensePattern})
	result.CMSDetected = DetectCMS(html)
	return result
}

// SSLProbe dials a domain on 443 and inspects the leaf certificate.
type SSLProbe struct {
	timeout time.Duration
}

func NewSSLProbe(timeout time.Duration) *SSLProbe {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &SSLProbe{timeout: timeout}
}

func (p *SSLProbe) Analyze(ctx context.Context, domain string) SSLResult {
	result := SSLResult{Domain: domain}

	dialer := &net.Dialer{Timeout: p.timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(domain, "443"), &tls.Config{ServerName: domain})
	if err != nil {
		result.Err = fmt.Errorf("dial %s:443: %w", domain, err)
		return result
	}
	defer conn.Close()

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return result
	}
	cert := state.PeerCertificates[0]
	if len(cert.Issuer.Organization) > 0 {
		result.Issuer = cert.Issuer.Organization[0]
	} else {
		result.Issuer = cert.Issuer.CommonName
	}
	result.SubjectAltNames = append(result.SubjectAltNames, cert.DNSNames...)
	return result
}
