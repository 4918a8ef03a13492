package paymentsettings

import (
	"context"
	"sync"
	"time"

	"github.com/beloribh/belori-backend/pkg/config"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
)

const tokenCacheTTL = time.Minute

// TokenProvider resolves the Mercado Pago access token for outbound calls.
// Credentials saved from the admin panel take precedence; the environment
// token is the fallback so a fresh deploy can take payments before anyone
// touches the panel.
type TokenProvider struct {
	repo     Repository
	envToken string
	now      func() time.Time

	mu        sync.Mutex
	cached    string
	expiresAt time.Time
}

func NewTokenProvider(repo Repository, cfg config.MercadoPagoConfig) (*TokenProvider, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment settings repository required")
	}
	return &TokenProvider{
		repo:     repo,
		envToken: cfg.AccessToken,
		now:      time.Now,
	}, nil
}

// AccessToken returns the active token, caching the DB lookup briefly so the
// webhook burst after a sale does not hammer the settings table.
func (p *TokenProvider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" && p.now().Before(p.expiresAt) {
		return p.cached, nil
	}

	token := p.envToken
	setting, err := p.repo.FindActiveByProvider(ctx, ProviderMercadoPago)
	switch {
	case err == nil:
		token = setting.AccessToken
	default:
		if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
			return "", err
		}
	}

	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "no mercado pago access token configured")
	}

	p.cached = token
	p.expiresAt = p.now().Add(tokenCacheTTL)
	return token, nil
}
