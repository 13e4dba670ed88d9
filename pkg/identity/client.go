package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/motogo-vn/motogo-payments/pkg/config"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
)

const defaultTimeout = 3 * time.Second

var errSessionRequired = errors.New("session id is required")

// SessionCache is the subset of the redis client used to cache whoami lookups.
type SessionCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	WhoamiKey(sessionID string) string
}

// Client resolves session cookies against the identity service's whoami
// endpoint, caching positive results in redis.
type Client struct {
	whoamiURL string
	cacheTTL  time.Duration
	http      *http.Client
	cache     SessionCache
	logger    *logger.Logger
}

func NewClient(cfg config.IdentityConfig, cache SessionCache, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errors.New("identity logger is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		whoamiURL: strings.TrimSpace(cfg.WhoamiURL),
		cacheTTL:  cfg.WhoamiCacheTTL,
		http:      &http.Client{Timeout: timeout},
		cache:     cache,
		logger:    logg,
	}, nil
}

// Whoami resolves a session id to a principal. Cached entries short-circuit
// the HTTP round trip.
func (c *Client) Whoami(ctx context.Context, sessionID string) (*Principal, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errSessionRequired
	}
	if c.whoamiURL == "" {
		return nil, errors.New("whoami url is not configured")
	}

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, c.cache.WhoamiKey(sessionID))
		if err == nil && cached != "" {
			var principal Principal
			if unmarshalErr := json.Unmarshal([]byte(cached), &principal); unmarshalErr == nil {
				return &principal, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.whoamiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build whoami request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call identity service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	var principal Principal
	if err := json.NewDecoder(resp.Body).Decode(&principal); err != nil {
		return nil, fmt.Errorf("decode whoami response: %w", err)
	}

	if c.cache != nil && c.cacheTTL > 0 {
		encoded, marshalErr := json.Marshal(principal)
		if marshalErr == nil {
			if cacheErr := c.cache.Set(ctx, c.cache.WhoamiKey(sessionID), string(encoded), c.cacheTTL); cacheErr != nil {
				c.logger.Warn(ctx, "failed to cache whoami result")
			}
		}
	}
	return &principal, nil
}
