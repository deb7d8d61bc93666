package shopify

import (
	"context"
	"strings"
)

const pageSize = 250

// Customer is the subset of a Shopify customer used for alert recipients and profiles
type Customer struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DisplayName string `json:"displayName"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

const customersWithMetafieldQuery = `
query Customers($first: Int!, $after: String, $namespace: String!, $key: String!) {
  customers(first: $first, after: $after) {
    pageInfo { hasNextPage endCursor }
    nodes {
      id
      email
      firstName
      lastName
      displayName
      metafield(namespace: $namespace, key: $key) { value }
    }
  }
}`

type customersPage struct {
	Customers struct {
		PageInfo pageInfo `json:"pageInfo"`
		Nodes    []struct {
			Customer
			Metafield *struct {
				Value string `json:"value"`
			} `json:"metafield"`
		} `json:"nodes"`
	} `json:"customers"`
}

// ListCustomersWithMetafield pages through every customer and keeps those whose
// metafield namespace.key equals value (case-insensitive).
func (c *Client) ListCustomersWithMetafield(ctx context.Context, namespace, key, value string) ([]Customer, error) {
	var (
		out   []Customer
		after *string
	)
	for {
		res, err := PostGraphQL[customersPage](ctx, c, customersWithMetafieldQuery, map[string]any{
			"first":     pageSize,
			"after":     after,
			"namespace": namespace,
			"key":       key,
		})
		if err != nil {
			return nil, err
		}
		page := res.Data.Customers
		for _, n := range page.Nodes {
			if n.Metafield != nil && strings.EqualFold(strings.TrimSpace(n.Metafield.Value), value) {
				out = append(out, n.Customer)
			}
		}
		if !page.PageInfo.HasNextPage {
			return out, nil
		}
		cursor := page.PageInfo.EndCursor
		after = &cursor
	}
}

// MetafieldInput sets one customer metafield
type MetafieldInput struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

const metafieldsSetMutation = `
mutation MetafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    userErrors { field message }
  }
}`

type metafieldsSetResult struct {
	MetafieldsSet struct {
		UserErrors []UserError `json:"userErrors"`
	} `json:"metafieldsSet"`
}

// SetCustomerMetafields writes metafields on one customer
func (c *Client) SetCustomerMetafields(ctx context.Context, customerID string, fields []MetafieldInput) error {
	if len(fields) == 0 {
		return nil
	}
	owner := CustomerGID(customerID)
	inputs := make([]map[string]any, 0, len(fields))
	for _, f := range fields {
		inputs = append(inputs, map[string]any{
			"ownerId":   owner,
			"namespace": f.Namespace,
			"key":       f.Key,
			"type":      f.Type,
			"value":     f.Value,
		})
	}

	res, err := PostGraphQL[metafieldsSetResult](ctx, c, metafieldsSetMutation, map[string]any{"metafields": inputs})
	if err != nil {
		return err
	}
	return userErrorsErr("metafieldsSet", res.Data.MetafieldsSet.UserErrors)
}
