package books

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"booksync/internal/domain/credential"
)

// GrantResult результат обмена grant code
type GrantResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

func (c *Client) oauthConfig(clientID, clientSecret, accountsURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  accountsURL + "/oauth/v2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// ensureToken возвращает действующий токен, обновляя его при необходимости
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	if token := c.tokens.GetAccessToken(ctx); token != "" && !c.tokens.IsTokenExpired(ctx) {
		return token, nil
	}
	return c.RefreshAccessToken(ctx)
}

// RefreshAccessToken обменивает refresh token на новый access token.
// Параллельные вызовы объединяются в один обмен.
func (c *Client) RefreshAccessToken(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		creds, err := c.tokens.GetCredentials(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNotConfigured, err)
		}
		if creds == nil {
			return "", ErrNotConfigured
		}

		cfg := c.oauthConfig(creds.ClientID, creds.ClientSecret, c.accountsURL)
		tok, err := cfg.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: creds.RefreshToken}).Token()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
		}
		if tok.AccessToken == "" {
			return "", fmt.Errorf("%w: empty access token", ErrTokenExchange)
		}

		if err := c.tokens.SaveAccessToken(ctx, tok.AccessToken, tokenLifetime); err != nil {
			return "", fmt.Errorf("failed to persist access token: %w", err)
		}
		c.log.Info("access token refreshed")
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ExchangeGrantCode одноразовый обмен grant code на пару токенов.
// Пустой region означает регион клиента.
func (c *Client) ExchangeGrantCode(ctx context.Context, clientID, clientSecret, grantCode, region string) (GrantResult, error) {
	accountsURL := c.accountsURL
	if region != "" && region != c.region.Code {
		r, err := LookupRegion(region)
		if err != nil {
			return GrantResult{}, err
		}
		accountsURL = r.AccountsURL
	}

	cfg := c.oauthConfig(clientID, clientSecret, accountsURL)
	tok, err := cfg.Exchange(c.oauthContext(ctx), grantCode)
	if err != nil {
		return GrantResult{}, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	if tok.RefreshToken == "" {
		return GrantResult{}, ErrNoOfflineAccess
	}

	expiresIn := tokenLifetime
	if !tok.Expiry.IsZero() {
		expiresIn = time.Until(tok.Expiry).Round(time.Second)
	}
	return GrantResult{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// ValidateCredentials проверяет новые учетные данные пробным обменом refresh token.
// Подходит как credential.ValidationHook.
func (c *Client) ValidateCredentials(ctx context.Context, creds credential.Credentials) error {
	cfg := c.oauthConfig(creds.ClientID, creds.ClientSecret, c.accountsURL)
	tok, err := cfg.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: creds.RefreshToken}).Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrTokenExchange)
	}
	return nil
}
