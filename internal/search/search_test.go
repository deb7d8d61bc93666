package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap/zaptest"

	"github.com/nishant-jng/shopify-backend-sub000/internal/shopify"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
)

type fakeBedrock struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeBedrock) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	var req struct {
		Messages []struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(in.Body, &req); err == nil && len(req.Messages) > 0 {
		f.prompt = req.Messages[0].Content[0].Text
	}
	body, _ := json.Marshal(map[string]any{
		"content": []map[string]any{{"type": "text", "text": f.reply}},
	})
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

type staticCatalog []shopify.Product

func (c staticCatalog) Get(context.Context) ([]shopify.Product, error) { return c, nil }

var products = staticCatalog{
	{ID: "gid://shopify/Product/1", Title: "Linen Shirt", Tags: []string{"summer"}},
	{ID: "gid://shopify/Product/2", Title: "Wool Coat", Tags: []string{"winter"}},
	{ID: "gid://shopify/Product/3", Title: "Cotton Tee"},
}

func TestSearch_RanksInModelOrder(t *testing.T) {
	client := &fakeBedrock{reply: `Sure! {"product_ids": ["gid://shopify/Product/3", "gid://shopify/Product/9", "gid://shopify/Product/1", "gid://shopify/Product/3"], "reason": "light {summer} fabrics"}`}
	svc := NewService(client, "anthropic.claude", products, zaptest.NewLogger(t))

	res, err := svc.Search(context.Background(), "something for the beach", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Products) != 2 || res.Products[0].Title != "Cotton Tee" || res.Products[1].Title != "Linen Shirt" {
		t.Errorf("products = %+v", res.Products)
	}
	if res.Reason != "light {summer} fabrics" {
		t.Errorf("reason = %q", res.Reason)
	}
	if !strings.Contains(client.prompt, "something for the beach") || !strings.Contains(client.prompt, "Wool Coat") {
		t.Errorf("prompt missing query or catalog: %q", client.prompt)
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeBedrock
		modelID string
		query   string
		kind    apperror.Kind
	}{
		{"empty query", &fakeBedrock{}, "m", " ", apperror.KindValidation},
		{"not configured", &fakeBedrock{}, "", "coat", apperror.KindConfiguration},
		{"bedrock down", &fakeBedrock{err: errors.New("throttled")}, "m", "coat", apperror.KindDependency},
		{"no json", &fakeBedrock{reply: "I cannot help"}, "m", "coat", apperror.KindDependency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.client, tt.modelID, products, zaptest.NewLogger(t))
			if _, err := svc.Search(context.Background(), tt.query, 0); !apperror.IsKind(err, tt.kind) {
				t.Errorf("err = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestExtractFirstJSONObject(t *testing.T) {
	tests := map[string]string{
		`noise {"a": {"b": 1}} trailing {"c": 2}`: `{"a": {"b": 1}}`,
		`{"s": "brace } inside"}`:                 `{"s": "brace } inside"}`,
		`no object`:                               ``,
		`{"open": `:                               ``,
	}
	for in, want := range tests {
		if got := extractFirstJSONObject(in); got != want {
			t.Errorf("extractFirstJSONObject(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"Čokoláda ručně", 6, "Čokolá..."},
		{"茶葉セット", 2, "茶葉..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want || !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
