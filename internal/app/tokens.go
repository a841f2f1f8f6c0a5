package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"recruiting-scheduler/internal/vault"
)

// RefreshFunc exchanges a refresh token at the provider's token endpoint.
// Swapped out in tests; the default uses x/oauth2 against the real
// endpoints (see OAuthClients.RefreshFunc).
type RefreshFunc func(ctx context.Context, p Provider, refreshToken string) (*oauth2.Token, error)

// TokenManager owns the credential lifecycle for every (owner, provider)
// pair: proactive freshness checks, refresh, and erase-on-failure so a
// credential that can no longer work never silently persists.
type TokenManager struct {
	creds   CredentialStore
	vault   *vault.Vault
	refresh RefreshFunc
	cache   *ttlcache.Cache[string, string]
	buffer  time.Duration
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

func NewTokenManager(creds CredentialStore, v *vault.Vault, refresh RefreshFunc, buffer, timeout time.Duration, log zerolog.Logger) *TokenManager {
	cache := ttlcache.New[string, string](
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go cache.Start()

	return &TokenManager{
		creds:   creds,
		vault:   v,
		refresh: refresh,
		cache:   cache,
		buffer:  buffer,
		timeout: timeout,
		log:     log,
		now:     time.Now,
	}
}

// Close stops the cache janitor goroutine.
func (m *TokenManager) Close() {
	m.cache.Stop()
}

func cacheKey(ownerID string, p Provider) string {
	return ownerID + "|" + string(p)
}

// GetAccessToken returns a plaintext access token for the owner and
// provider, refreshing when the stored token expires within the freshness
// buffer or when forceRefresh is set. A missing or corrupted credential
// comes back as ErrNoCredential. Credentials the token endpoint
// definitively rejects are erased; transient exchange failures keep them.
func (m *TokenManager) GetAccessToken(ctx context.Context, ownerID string, p Provider, forceRefresh bool) (string, error) {
	key := cacheKey(ownerID, p)

	if !forceRefresh {
		if item := m.cache.Get(key); item != nil {
			return item.Value(), nil
		}
	}

	acct, err := m.creds.GetCredential(ctx, ownerID, p)
	if errors.Is(err, ErrNotFound) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("load %s credential: %w", p, err)
	}

	if !forceRefresh && m.fresh(acct) {
		token, err := m.vault.Unseal(acct.AccessToken)
		if err == nil {
			m.cacheToken(key, token, acct.ExpiresAt)
			return token, nil
		}
		// Undecryptable access token: fall through and try a refresh
		// before giving up on the credential.
		m.log.Warn().Str("owner", ownerID).Str("provider", string(p)).
			Msg("stored access token unsealed with error, refreshing")
	}

	return m.refreshCredential(ctx, ownerID, p, acct)
}

func (m *TokenManager) refreshCredential(ctx context.Context, ownerID string, p Provider, acct *CalendarAccount) (string, error) {
	key := cacheKey(ownerID, p)
	m.cache.Delete(key)

	refreshToken, err := m.vault.Unseal(acct.RefreshToken)
	if err != nil {
		// A credential we can never decrypt again must not persist.
		m.eraseCredential(ctx, ownerID, p, "refresh token unseal failed")
		return "", fmt.Errorf("%s refresh token unreadable: %w", p, ErrNoCredential)
	}

	rctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	tok, err := m.refresh(rctx, p, refreshToken)
	if err != nil {
		// Only a definitive rejection from the token endpoint means the
		// refresh token is dead. Timeouts and transport failures leave the
		// stored credential alone so a network blip cannot force re-consent.
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			m.eraseCredential(ctx, ownerID, p, "token endpoint rejected refresh token")
		} else {
			m.log.Warn().Err(err).Str("owner", ownerID).Str("provider", string(p)).
				Msg("refresh exchange failed transiently, credential kept")
		}
		return "", fmt.Errorf("refresh %s access token: %w", p, err)
	}

	sealedAccess, err := m.vault.Seal(tok.AccessToken)
	if err != nil {
		return "", fmt.Errorf("seal %s access token: %w", p, err)
	}
	// Some providers rotate the refresh token on use; keep the newest.
	sealedRefresh := acct.RefreshToken
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		if sealed, err := m.vault.Seal(tok.RefreshToken); err == nil {
			sealedRefresh = sealed
		}
	}

	expiresAt := tok.Expiry.Unix()
	if tok.Expiry.IsZero() {
		expiresAt = m.now().Add(time.Hour).Unix()
	}

	if err := m.creds.UpdateTokens(ctx, ownerID, p, sealedAccess, sealedRefresh, expiresAt); err != nil {
		m.log.Error().Err(err).Str("owner", ownerID).Str("provider", string(p)).
			Msg("persisting refreshed token failed")
	}

	m.cacheToken(key, tok.AccessToken, expiresAt)
	return tok.AccessToken, nil
}

func (m *TokenManager) fresh(acct *CalendarAccount) bool {
	return time.Unix(acct.ExpiresAt, 0).After(m.now().Add(m.buffer))
}

func (m *TokenManager) cacheToken(key, token string, expiresAt int64) {
	ttl := time.Unix(expiresAt, 0).Sub(m.now()) - m.buffer
	if ttl <= 0 {
		return
	}
	m.cache.Set(key, token, ttl)
}

func (m *TokenManager) eraseCredential(ctx context.Context, ownerID string, p Provider, reason string) {
	m.cache.Delete(cacheKey(ownerID, p))
	if err := m.creds.DeleteCredential(ctx, ownerID, p); err != nil {
		m.log.Error().Err(err).Str("owner", ownerID).Str("provider", string(p)).
			Msg("erasing credential failed")
		return
	}
	m.log.Warn().Str("owner", ownerID).Str("provider", string(p)).Str("reason", reason).
		Msg("credential erased, owner must reconnect")
}

// Invalidate erases the stored credential, forcing re-consent. Used when a
// provider keeps rejecting a token that should have been valid.
func (m *TokenManager) Invalidate(ctx context.Context, ownerID string, p Provider) {
	m.eraseCredential(ctx, ownerID, p, "provider rejected refreshed token")
}

// Connected reports whether a usable credential exists. A stored blob that
// no longer unseals counts as absent and is proactively erased.
func (m *TokenManager) Connected(ctx context.Context, ownerID string, p Provider) (bool, error) {
	acct, err := m.creds.GetCredential(ctx, ownerID, p)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := m.vault.Unseal(acct.RefreshToken); err != nil {
		m.eraseCredential(ctx, ownerID, p, "stored credential corrupted")
		return false, nil
	}
	return true, nil
}

// StoreConsent seals and persists the token pair obtained from the OAuth
// consent exchange.
func (m *TokenManager) StoreConsent(ctx context.Context, ownerID string, p Provider, accessToken, refreshToken string, expiresAt time.Time) error {
	sealedAccess, err := m.vault.Seal(accessToken)
	if err != nil {
		return err
	}
	sealedRefresh, err := m.vault.Seal(refreshToken)
	if err != nil {
		return err
	}
	if err := m.creds.UpsertCredential(ctx, &CalendarAccount{
		OwnerID:      ownerID,
		Provider:     p,
		AccessToken:  sealedAccess,
		RefreshToken: sealedRefresh,
		ExpiresAt:    expiresAt.Unix(),
	}); err != nil {
		return err
	}
	m.cacheToken(cacheKey(ownerID, p), accessToken, expiresAt.Unix())
	return nil
}

// Disconnect erases the credential on explicit user request.
func (m *TokenManager) Disconnect(ctx context.Context, ownerID string, p Provider) error {
	m.cache.Delete(cacheKey(ownerID, p))
	return m.creds.DeleteCredential(ctx, ownerID, p)
}
