// Package kroger fetches product listings from the Kroger product search API.
package kroger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"GroceryScanner/internal/domain"
	"GroceryScanner/internal/ports"
)

const unknown = "Unknown"

// Config describes how products are searched.
type Config struct {
	ProductsURL string
	SearchTerms []string
	Limit       int
	MaxPages    int
	// PageDelay spaces consecutive page requests.
	PageDelay time.Duration
}

// Client implements ports.ProductFetcher over the product search endpoint.
type Client struct {
	cfg     Config
	http    *http.Client
	tokens  *TokenCache
	limiter *rate.Limiter
	now     func() time.Time
	logger  *slog.Logger
}

var _ ports.ProductFetcher = (*Client)(nil)

// NewClient wires the HTTP client, token cache and page pacing.
func NewClient(cfg Config, tokens *TokenCache, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}

	limit := rate.Inf
	if cfg.PageDelay > 0 {
		limit = rate.Every(cfg.PageDelay)
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		tokens:  tokens,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
		logger:  logger,
	}
}

type searchResponse struct {
	Data []apiProduct `json:"data"`
	Meta struct {
		Pagination struct {
			Start int `json:"start"`
			Limit int `json:"limit"`
			Total int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

type apiProduct struct {
	ProductID   string    `json:"productId"`
	UPC         string    `json:"upc"`
	Brand       string    `json:"brand"`
	Description string    `json:"description"`
	Categories  []string  `json:"categories"`
	Items       []apiItem `json:"items"`
}

type apiItem struct {
	Price *struct {
		Regular float64 `json:"regular"`
		Promo   float64 `json:"promo"`
	} `json:"price"`
	Inventory *struct {
		StockLevel string `json:"stockLevel"`
	} `json:"inventory"`
	Size   string `json:"size"`
	SoldBy string `json:"soldBy"`
}

// Fetch searches every configured term at the location and returns all pages.
func (c *Client) Fetch(ctx context.Context, locationID string) ([]domain.ProductRecord, error) {
	token, err := c.tokens.Get(ctx, c.now())
	if err != nil {
		return nil, classify(locationID, err)
	}

	retrievedOn := c.now().Format(domain.DateLayout)
	var products []domain.ProductRecord
	for _, term := range c.cfg.SearchTerms {
		found, err := c.searchTerm(ctx, token, locationID, term, retrievedOn)
		if err != nil {
			return nil, classify(locationID, err)
		}
		products = append(products, found...)
	}

	c.logger.Debug("fetched products", "location_id", locationID, "count", len(products))
	return products, nil
}

func (c *Client) searchTerm(ctx context.Context, token, locationID, term, retrievedOn string) ([]domain.ProductRecord, error) {
	var products []domain.ProductRecord
	start := 1
	for page := 0; page < c.cfg.MaxPages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.searchPage(ctx, token, locationID, term, start)
		if err != nil {
			return nil, fmt.Errorf("term %q page %d: %w", term, page+1, err)
		}
		if len(resp.Data) == 0 {
			break
		}

		for _, p := range resp.Data {
			products = append(products, toRecord(p, locationID, retrievedOn))
		}

		if len(products) >= resp.Meta.Pagination.Total || len(resp.Data) < c.cfg.Limit {
			break
		}
		start += c.cfg.Limit
	}
	return products, nil
}

func (c *Client) searchPage(ctx context.Context, token, locationID, term string, start int) (*searchResponse, error) {
	u, err := url.Parse(c.cfg.ProductsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid products url %s: %w", c.cfg.ProductsURL, err)
	}
	q := u.Query()
	q.Set("filter.term", term)
	q.Set("filter.locationId", locationID)
	q.Set("filter.limit", strconv.Itoa(c.cfg.Limit))
	q.Set("filter.start", strconv.Itoa(start))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			c.tokens.Invalidate()
		}
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &statusError{op: "search products", status: resp.StatusCode, body: strings.TrimSpace(string(payload))}
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &decodeError{what: "products", err: err}
	}
	return &out, nil
}

// decodeError marks a 200 response whose body is not what the API promises.
type decodeError struct {
	what string
	err  error
}

func (e *decodeError) Error() string { return "decode " + e.what + ": " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func toRecord(p apiProduct, locationID, retrievedOn string) domain.ProductRecord {
	rec := domain.ProductRecord{
		ProductID:     orUnknown(p.ProductID),
		UPC:           orUnknown(p.UPC),
		Brand:         orUnknown(p.Brand),
		Description:   orUnknown(p.Description),
		Categories:    p.Categories,
		LocationID:    locationID,
		StockLevel:    unknown,
		Size:          unknown,
		SoldBy:        unknown,
		DateRetrieved: retrievedOn,
	}

	if len(p.Items) == 0 {
		return rec
	}
	item := p.Items[0]
	if item.Price != nil {
		rec.RegularPrice = item.Price.Regular
		rec.PromoPrice = item.Price.Promo
	}
	if item.Inventory != nil {
		rec.StockLevel = orUnknown(item.Inventory.StockLevel)
	}
	rec.Size = orUnknown(item.Size)
	rec.SoldBy = orUnknown(item.SoldBy)
	return rec
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}

// classify maps transport and status failures onto domain fetch errors.
func classify(locationID string, err error) error {
	fe := &domain.FetchError{LocationID: locationID, Kind: domain.FetchNetwork, Err: err}

	var se *statusError
	var de *decodeError
	switch {
	case errors.Is(err, ErrMissingCredentials):
		fe.Kind = domain.FetchAuth
	case errors.As(err, &se):
		fe.Status = se.status
		switch se.status {
		case http.StatusUnauthorized, http.StatusForbidden:
			fe.Kind = domain.FetchAuth
		case http.StatusTooManyRequests:
			fe.Kind = domain.FetchRateLimited
		default:
			fe.Kind = domain.FetchBadResponse
		}
	case errors.As(err, &de):
		fe.Kind = domain.FetchBadResponse
	}
	return fe
}
