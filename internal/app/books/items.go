package books

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// FindItemBySKU nil если товар с таким SKU не найден
func (c *Client) FindItemBySKU(ctx context.Context, sku string) (*Item, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, nil
	}
	var resp struct {
		Items []Item `json:"items"`
	}
	if err := c.call(ctx, Op{Endpoint: "items.list", EntityID: sku}, http.MethodGet, "/items", url.Values{"sku": {sku}}, nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Items {
		if resp.Items[i].SKU == sku {
			return &resp.Items[i], nil
		}
	}
	return nil, nil
}

func (c *Client) CreateItem(ctx context.Context, item Item) (*Item, error) {
	var resp struct {
		Item Item `json:"item"`
	}
	if item.ProductType == "" {
		item.ProductType = "goods"
	}
	if err := c.call(ctx, Op{Endpoint: "items.create", EntityID: item.SKU}, http.MethodPost, "/items", nil, item, &resp); err != nil {
		return nil, err
	}
	return &resp.Item, nil
}
