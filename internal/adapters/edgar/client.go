package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mitds/internal/mitderr"
)

const (
	submissionsURL = "https://data.sec.gov/submissions/CIK%s.json"
	userAgent      = "MITDS Research contact@mitds.org"
)

// Client fetches SEC EDGAR submissions JSON, generalizing the teacher's
// EDGARClient (pkg/core/ingest/edgar.go) beyond 10-K fetching to the
// submissions/Form-4/13D surfaces this adapter needs.
type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// CompanyInfo is the subset of the submissions JSON document this adapter
// promotes to typed attributes (§9: only promote fields named in the
// schemas).
type CompanyInfo struct {
	CIK                  string `json:"cik"`
	Name                 string `json:"name"`
	SIC                  string `json:"sic"`
	SICDescription       string `json:"sicDescription"`
	StateOfIncorporation string `json:"stateOfIncorporation"`
	FiscalYearEnd        string `json:"fiscalYearEnd"`
	Tickers              []string `json:"tickers"`
	Exchanges            []string `json:"exchanges"`
}

// FetchCompanyInfo zero-pads cik to 10 digits and fetches the submissions
// document, exactly as the teacher's FetchCompanyInfo does. The raw JSON
// body is returned alongside the parsed struct so the adapter can archive
// it in the Provenance & Evidence Store (§4.1) ahead of upserting.
func (c *Client) FetchCompanyInfo(ctx context.Context, cik string) (*CompanyInfo, []byte, error) {
	padded := fmt.Sprintf("%010s", strings.TrimPrefix(cik, "0"))
	url := fmt.Sprintf(submissionsURL, padded)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, mitderr.Permanent(cik, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, mitderr.Transient(fmt.Errorf("fetch submissions for CIK %s: %w", cik, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, nil, &mitderr.RateLimit{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, mitderr.Transient(fmt.Errorf("SEC returned status %d for CIK %s", resp.StatusCode, cik))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, mitderr.Transient(fmt.Errorf("read submissions body: %w", err))
	}

	var info CompanyInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, nil, mitderr.Permanent(cik, fmt.Errorf("parse submissions JSON: %w", err))
	}
	info.CIK = padded
	return &info, body, nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			return d
		}
	}
	return 60 * time.Second
}
