package app

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	calendar "google.golang.org/api/calendar/v3"

	"recruiting-scheduler/internal/config"
)

// OAuthClients holds the per-provider OAuth client configurations used to
// exchange refresh tokens. The consent flow itself (redirects, code
// exchange) lives in the surrounding portal; this core only needs the
// token endpoints.
type OAuthClients struct {
	google  *oauth2.Config
	outlook *oauth2.Config
}

func NewOAuthClients(cfg *config.Config) *OAuthClients {
	return &OAuthClients{
		google: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		},
		outlook: &oauth2.Config{
			ClientID:     cfg.OutlookClientID,
			ClientSecret: cfg.OutlookClientSecret,
			Scopes:       []string{"offline_access", "https://graph.microsoft.com/Calendars.ReadWrite"},
			Endpoint:     microsoft.AzureADEndpoint(cfg.OutlookTenant),
		},
	}
}

func (c *OAuthClients) configFor(p Provider) (*oauth2.Config, error) {
	switch p {
	case ProviderGoogle:
		return c.google, nil
	case ProviderOutlook:
		return c.outlook, nil
	}
	return nil, fmt.Errorf("unknown provider %q", p)
}

// RefreshFunc exchanges a refresh token at the provider's token endpoint
// via the standard oauth2 token source.
func (c *OAuthClients) RefreshFunc() RefreshFunc {
	return func(ctx context.Context, p Provider, refreshToken string) (*oauth2.Token, error) {
		conf, err := c.configFor(p)
		if err != nil {
			return nil, err
		}
		tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
		if err != nil {
			return nil, fmt.Errorf("%s token endpoint: %w", p, err)
		}
		return tok, nil
	}
}
