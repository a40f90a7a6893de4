package books

import (
	"context"
	"net/http"
	"net/url"
)

// Ping запрашивает организацию, используется для проверки связи
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetOrganization(ctx)
	return err
}

func (c *Client) GetOrganization(ctx context.Context) (*Organization, error) {
	var resp struct {
		Organization Organization `json:"organization"`
	}
	if err := c.call(ctx, Op{Endpoint: "organizations.get", EntityID: c.orgID}, http.MethodGet, "/organizations/"+url.PathEscape(c.orgID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Organization, nil
}
