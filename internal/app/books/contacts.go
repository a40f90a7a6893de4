package books

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// FindContactByEmail точное совпадение email без учета регистра, nil если не найден
func (c *Client) FindContactByEmail(ctx context.Context, email string) (*Contact, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	var resp struct {
		Contacts []Contact `json:"contacts"`
	}
	q := url.Values{"email": {email}, "contact_type": {"customer"}}
	if err := c.call(ctx, Op{Endpoint: "contacts.list", EntityID: email}, http.MethodGet, "/contacts", q, nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Contacts {
		if strings.EqualFold(strings.TrimSpace(resp.Contacts[i].Email), email) {
			return &resp.Contacts[i], nil
		}
	}
	return nil, nil
}

func (c *Client) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	var resp struct {
		Contact Contact `json:"contact"`
	}
	if err := c.call(ctx, Op{Endpoint: "contacts.get", EntityID: contactID}, http.MethodGet, "/contacts/"+url.PathEscape(contactID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Contact, nil
}

func (c *Client) CreateContact(ctx context.Context, contact Contact) (*Contact, error) {
	var resp struct {
		Contact Contact `json:"contact"`
	}
	if contact.ContactType == "" {
		contact.ContactType = "customer"
	}
	if err := c.call(ctx, Op{Endpoint: "contacts.create", EntityID: contact.Email}, http.MethodPost, "/contacts", nil, contact, &resp); err != nil {
		return nil, err
	}
	return &resp.Contact, nil
}

func (c *Client) UpdateContact(ctx context.Context, contactID string, update ContactUpdate) (*Contact, error) {
	var resp struct {
		Contact Contact `json:"contact"`
	}
	if err := c.call(ctx, Op{Endpoint: "contacts.update", EntityID: contactID}, http.MethodPut, "/contacts/"+url.PathEscape(contactID), nil, update, &resp); err != nil {
		return nil, err
	}
	return &resp.Contact, nil
}

type currencyCache struct {
	mu    sync.RWMutex
	codes map[string]string
}

func newCurrencyCache() *currencyCache {
	return &currencyCache{}
}

// ListCurrencies валюты организации
func (c *Client) ListCurrencies(ctx context.Context) ([]Currency, error) {
	var resp struct {
		Currencies []Currency `json:"currencies"`
	}
	if err := c.call(ctx, Op{Endpoint: "currencies.list"}, http.MethodGet, "/settings/currencies", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Currencies, nil
}

// CurrencyID id валюты по коду, "" если валюта не заведена в организации.
// Список загружается один раз.
func (c *Client) CurrencyID(ctx context.Context, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	c.currencies.mu.RLock()
	codes := c.currencies.codes
	c.currencies.mu.RUnlock()

	if codes == nil {
		list, err := c.ListCurrencies(ctx)
		if err != nil {
			return "", err
		}
		codes = make(map[string]string, len(list))
		for _, cur := range list {
			codes[strings.ToUpper(cur.CurrencyCode)] = cur.CurrencyID
		}
		c.currencies.mu.Lock()
		c.currencies.codes = codes
		c.currencies.mu.Unlock()
	}
	return codes[code], nil
}
