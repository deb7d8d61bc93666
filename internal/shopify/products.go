package shopify

import (
	"context"
	"sync"
	"time"
)

// Product is the catalog view used by search
type Product struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Handle      string   `json:"handle"`
	Description string   `json:"description"`
	ProductType string   `json:"productType"`
	Vendor      string   `json:"vendor"`
	Tags        []string `json:"tags"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	MinPrice    string   `json:"minPrice,omitempty"`
	Currency    string   `json:"currency,omitempty"`
}

const productsQuery = `
query Products($first: Int!, $after: String) {
  products(first: $first, after: $after) {
    pageInfo { hasNextPage endCursor }
    nodes {
      id
      title
      handle
      description
      productType
      vendor
      tags
      featuredImage { url }
      priceRangeV2 { minVariantPrice { amount currencyCode } }
    }
  }
}`

type productsPage struct {
	Products struct {
		PageInfo pageInfo `json:"pageInfo"`
		Nodes    []struct {
			ID            string   `json:"id"`
			Title         string   `json:"title"`
			Handle        string   `json:"handle"`
			Description   string   `json:"description"`
			ProductType   string   `json:"productType"`
			Vendor        string   `json:"vendor"`
			Tags          []string `json:"tags"`
			FeaturedImage *struct {
				URL string `json:"url"`
			} `json:"featuredImage"`
			PriceRange struct {
				Min struct {
					Amount       string `json:"amount"`
					CurrencyCode string `json:"currencyCode"`
				} `json:"minVariantPrice"`
			} `json:"priceRangeV2"`
		} `json:"nodes"`
	} `json:"products"`
}

// FetchAllProducts walks the catalog page by page
func (c *Client) FetchAllProducts(ctx context.Context) ([]Product, error) {
	out := []Product{}
	var after *string
	for {
		res, err := PostGraphQL[productsPage](ctx, c, productsQuery, map[string]any{
			"first": pageSize,
			"after": after,
		})
		if err != nil {
			return nil, err
		}
		page := res.Data.Products
		for _, n := range page.Nodes {
			p := Product{
				ID:          n.ID,
				Title:       n.Title,
				Handle:      n.Handle,
				Description: n.Description,
				ProductType: n.ProductType,
				Vendor:      n.Vendor,
				Tags:        n.Tags,
				MinPrice:    n.PriceRange.Min.Amount,
				Currency:    n.PriceRange.Min.CurrencyCode,
			}
			if n.FeaturedImage != nil {
				p.ImageURL = n.FeaturedImage.URL
			}
			out = append(out, p)
		}
		if !page.PageInfo.HasNextPage {
			return out, nil
		}
		cursor := page.PageInfo.EndCursor
		after = &cursor
	}
}

// ProductCache holds the whole catalog for ttl. Writes to the store do not
// invalidate it.
type ProductCache struct {
	fetch func(ctx context.Context) ([]Product, error)
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	products  []Product
	fetchedAt time.Time
}

func NewProductCache(fetch func(ctx context.Context) ([]Product, error), ttl time.Duration) *ProductCache {
	return &ProductCache{fetch: fetch, ttl: ttl, now: time.Now}
}

// Get returns the cached catalog, refetching once it has expired
func (pc *ProductCache) Get(ctx context.Context) ([]Product, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.products != nil && pc.now().Sub(pc.fetchedAt) < pc.ttl {
		return pc.products, nil
	}
	products, err := pc.fetch(ctx)
	if err != nil {
		return nil, err
	}
	pc.products = products
	pc.fetchedAt = pc.now()
	return products, nil
}
