// Package crunchbase provides a client for the Crunchbase v4 API, covering
// the organization search and lookup operations the discovery engine needs.
package crunchbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/thesis-scout/internal/resilience"
)

const defaultBaseURL = "https://api.crunchbase.com/api/v4"

// organizationFields are the field_ids requested for every organization.
var organizationFields = []string{
	"identifier",
	"short_description",
	"website_url",
	"founded_on",
	"funding_total",
	"last_funding_type",
	"operating_status",
	"categories",
}

// Client performs Crunchbase API operations.
type Client interface {
	// SearchOrganizations runs a predicate search and returns matching
	// organizations, capped server-side at req.Limit.
	SearchOrganizations(ctx context.Context, req SearchRequest) ([]Organization, error)
	// GetOrganization fetches one organization's full record by permalink.
	GetOrganization(ctx context.Context, permalink string) (*Organization, error)
}

// Predicate is a single field-scoped search condition.
type Predicate struct {
	FieldID    string `json:"field_id"`
	OperatorID string `json:"operator_id"`
	Values     []any  `json:"values"`
}

// Order specifies server-side result ordering.
type Order struct {
	FieldID string `json:"field_id"`
	Sort    string `json:"sort"` // "asc" or "desc"
}

// SearchRequest describes an organization search.
type SearchRequest struct {
	Predicates []Predicate
	Order      *Order
	Limit      int
}

// Organization is a flattened organization field bundle.
type Organization struct {
	Name             string
	Permalink        string
	ShortDescription string
	WebsiteURL       string
	FoundedYear      int
	FundingTotalUSD  int64
	LastFundingType  string
	OperatingStatus  string
	Categories       []string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the request rate limit in requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.Policy
}

// NewClient creates a Crunchbase API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(4), 1),
		retry:   resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// --- wire types ---

type searchBody struct {
	FieldIDs []string    `json:"field_ids"`
	Query    []queryItem `json:"query"`
	Order    []Order     `json:"order,omitempty"`
	Limit    int         `json:"limit"`
}

type queryItem struct {
	Type       string `json:"type"`
	FieldID    string `json:"field_id"`
	OperatorID string `json:"operator_id"`
	Values     []any  `json:"values"`
}

type searchResponse struct {
	Count    int      `json:"count"`
	Entities []entity `json:"entities"`
}

type entity struct {
	UUID       string     `json:"uuid"`
	Properties properties `json:"properties"`
}

type properties struct {
	Identifier struct {
		Value     string `json:"value"`
		Permalink string `json:"permalink"`
	} `json:"identifier"`
	ShortDescription string `json:"short_description"`
	WebsiteURL       string `json:"website_url"`
	FoundedOn        struct {
		Value string `json:"value"` // "2019-04-01"
	} `json:"founded_on"`
	FundingTotal struct {
		ValueUSD int64 `json:"value_usd"`
	} `json:"funding_total"`
	LastFundingType string `json:"last_funding_type"`
	OperatingStatus string `json:"operating_status"`
	Categories      []struct {
		Value string `json:"value"`
	} `json:"categories"`
}

func (p properties) toOrganization() Organization {
	org := Organization{
		Name:             p.Identifier.Value,
		Permalink:        p.Identifier.Permalink,
		ShortDescription: p.ShortDescription,
		WebsiteURL:       p.WebsiteURL,
		FundingTotalUSD:  p.FundingTotal.ValueUSD,
		LastFundingType:  p.LastFundingType,
		OperatingStatus:  p.OperatingStatus,
	}
	if len(p.FoundedOn.Value) >= 4 {
		var year int
		if _, err := fmt.Sscanf(p.FoundedOn.Value[:4], "%d", &year); err == nil {
			org.FoundedYear = year
		}
	}
	for _, c := range p.Categories {
		org.Categories = append(org.Categories, c.Value)
	}
	return org
}

func (c *httpClient) SearchOrganizations(ctx context.Context, req SearchRequest) ([]Organization, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "crunchbase: rate limit wait")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 25
	}

	body := searchBody{
		FieldIDs: organizationFields,
		Limit:    limit,
	}
	for _, p := range req.Predicates {
		body.Query = append(body.Query, queryItem{
			Type:       "predicate",
			FieldID:    p.FieldID,
			OperatorID: p.OperatorID,
			Values:     p.Values,
		})
	}
	if req.Order != nil {
		body.Order = []Order{*req.Order}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "crunchbase: marshal request")
	}

	respBody, err := c.doRequest(ctx, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/searches/organizations", bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "crunchbase: unmarshal response")
	}

	orgs := make([]Organization, 0, len(result.Entities))
	for _, e := range result.Entities {
		orgs = append(orgs, e.Properties.toOrganization())
	}
	return orgs, nil
}

func (c *httpClient) GetOrganization(ctx context.Context, permalink string) (*Organization, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "crunchbase: rate limit wait")
	}

	u := fmt.Sprintf("%s/entities/organizations/%s?field_ids=%s",
		c.baseURL, url.PathEscape(permalink), fieldIDsParam())

	respBody, err := c.doRequest(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, err
	}

	var e entity
	if err := json.Unmarshal(respBody, &e); err != nil {
		return nil, eris.Wrap(err, "crunchbase: unmarshal response")
	}

	org := e.Properties.toOrganization()
	return &org, nil
}

// doRequest issues the request built by build, retrying transient failures.
func (c *httpClient) doRequest(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	return resilience.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		httpReq, err := build(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "crunchbase: create request")
		}
		httpReq.Header.Set("X-cb-user-key", c.apiKey)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, eris.Wrap(err, "crunchbase: send request")
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "crunchbase: read response")
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("crunchbase: unexpected status %d: %s", resp.StatusCode, string(respBody))
			if resilience.TransientStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return nil, statusErr
		}
		return respBody, nil
	})
}

func fieldIDsParam() string {
	var b bytes.Buffer
	for i, f := range organizationFields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f)
	}
	return b.String()
}
