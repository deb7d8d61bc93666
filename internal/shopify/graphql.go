// Package shopify is a small Admin GraphQL client for the store's customers and products.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/config"
)

type GraphQLError struct {
	Message    string `json:"message"`
	Path       []any  `json:"path,omitempty"`
	Extensions struct {
		Code string `json:"code,omitempty"`
	} `json:"extensions,omitempty"`
}

type GraphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// Client holds the store credentials
type Client struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
	log         *zap.Logger
}

type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint URL
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(cfg config.ShopifyConfig, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint:    fmt.Sprintf("https://%s/admin/api/%s/graphql.json", cfg.ShopDomain, cfg.APIVersion),
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostGraphQL runs one query. Transport failures and non-2xx statuses become
// dependency errors carrying the upstream status.
func PostGraphQL[T any](ctx context.Context, c *Client, query string, variables any) (*GraphQLResponse[T], error) {
	body := map[string]any{
		"query":     query,
		"variables": variables,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Dependency("shopify request failed", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, apperror.Dependency("shopify response read failed", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.log.Warn("Shopify returned non-2xx",
			zap.Int("status", res.StatusCode),
			zap.ByteString("body", truncate(raw, 512)))
		return nil, apperror.Upstream(res.StatusCode, "shopify request failed",
			fmt.Errorf("status %d", res.StatusCode))
	}

	var out GraphQLResponse[T]
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperror.Dependency("shopify response decode failed", err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return &out, apperror.Dependency("shopify graphql error", errors.New(strings.Join(msgs, "; ")))
	}
	return &out, nil
}

func userErrorsErr(op string, errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, strings.Join(e.Field, ".")+": "+e.Message)
	}
	return apperror.Dependency(op+" rejected", errors.New(strings.Join(msgs, "; ")))
}

// CustomerGID accepts a numeric id or a full gid
func CustomerGID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/Customer/" + id
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
