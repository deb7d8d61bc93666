// Package search ranks catalog products against a free-text query with a
// Bedrock-hosted model.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/internal/shopify"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
)

const (
	defaultLimit = 8
	maxLimit     = 24
	// catalog lines sent to the model
	maxCatalog = 400
)

// BedrockClient is the subset of bedrockruntime.Client used here
type BedrockClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type catalog interface {
	Get(ctx context.Context) ([]shopify.Product, error)
}

// Result is a ranked product list
type Result struct {
	Query    string            `json:"query"`
	Products []shopify.Product `json:"products"`
	Reason   string            `json:"reason,omitempty"`
}

type Service struct {
	client  BedrockClient
	modelID string
	catalog catalog
	log     *zap.Logger
}

func NewService(client BedrockClient, modelID string, catalog catalog, log *zap.Logger) *Service {
	return &Service{client: client, modelID: modelID, catalog: catalog, log: log}
}

type modelAnswer struct {
	ProductIDs []string `json:"product_ids"`
	Reason     string   `json:"reason"`
}

// Search asks the model for the products best matching query and returns them
// in the model's order. Ids the catalog does not know are dropped.
func (s *Service) Search(ctx context.Context, query string, limit int) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.MissingFields("query")
	}
	if s.modelID == "" {
		return nil, apperror.Configuration("AI search is not configured")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	products, err := s.catalog.Get(ctx)
	if err != nil {
		return nil, apperror.Dependency("failed to load catalog", err)
	}
	if len(products) == 0 {
		return &Result{Query: query, Products: []shopify.Product{}}, nil
	}

	text, err := s.invoke(ctx, buildPrompt(query, limit, products))
	if err != nil {
		return nil, apperror.Dependency("AI search failed", err)
	}
	raw := extractFirstJSONObject(text)
	if raw == "" {
		s.log.Warn("Model did not return JSON", zap.String("text", truncate(text, 300)))
		return nil, apperror.Dependency("AI search returned no result", nil)
	}
	var answer modelAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return nil, apperror.Dependency("AI search returned malformed result", err)
	}

	byID := make(map[string]shopify.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	out := make([]shopify.Product, 0, len(answer.ProductIDs))
	seen := map[string]bool{}
	for _, id := range answer.ProductIDs {
		p, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}

	s.log.Info("AI search completed",
		zap.String("query", query),
		zap.Int("suggested", len(answer.ProductIDs)),
		zap.Int("returned", len(out)))
	return &Result{Query: query, Products: out, Reason: answer.Reason}, nil
}

func (s *Service) invoke(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        600,
		"temperature":       0.0,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": prompt},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	out, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(s.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock InvokeModel: %w", err)
	}

	var raw struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(out.Body, &raw); err != nil {
		return "", fmt.Errorf("bedrock response unmarshal: %w", err)
	}
	var text strings.Builder
	for _, c := range raw.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	return strings.TrimSpace(text.String()), nil
}

func buildPrompt(query string, limit int, products []shopify.Product) string {
	var b strings.Builder
	for i, p := range products {
		if i == maxCatalog {
			break
		}
		fmt.Fprintf(&b, "%s | %s | %s | %s | %s\n",
			p.ID, p.Title, p.ProductType, strings.Join(p.Tags, ","), truncate(p.Description, 160))
	}

	return fmt.Sprintf(`You match shoppers to products in a store catalog.

Pick at most %d products that best match the shopper's request, best match first.
Use ONLY ids from the catalog. If nothing fits, return an empty list.

CATALOG (id | title | type | tags | description):
%s
SHOPPER REQUEST:
%s

Return JSON only:
{"product_ids": ["..."], "reason": "one short sentence"}
`, limit, b.String(), query)
}

// truncate keeps at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// extractFirstJSONObject finds the first balanced {...} block, skipping braces
// inside strings.
func extractFirstJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
