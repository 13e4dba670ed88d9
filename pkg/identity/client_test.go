package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/motogo-vn/motogo-payments/pkg/config"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
)

type fakeCache struct {
	entries map[string]string
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	return f.entries[key], nil
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.sets++
	f.entries[key] = value.(string)
	return nil
}

func (f *fakeCache) WhoamiKey(sessionID string) string {
	return "mgp:whoami:" + sessionID
}

func TestWhoamiResolvesAndCaches(t *testing.T) {
	userID := uuid.New()
	stationID := uuid.New()
	var calls int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		cookie, err := r.Cookie("session_id")
		require.NoError(t, err)
		require.Equal(t, "sess-1", cookie.Value)
		json.NewEncoder(w).Encode(Principal{
			UserID:     userID,
			Role:       enums.RoleStaff,
			StationIDs: []uuid.UUID{stationID},
		})
	}))
	defer server.Close()

	cache := newFakeCache()
	client, err := NewClient(config.IdentityConfig{
		WhoamiURL:      server.URL,
		WhoamiCacheTTL: time.Minute,
	}, cache, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)

	principal, err := client.Whoami(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, userID, principal.UserID)
	require.Equal(t, enums.RoleStaff, principal.Role)
	require.Equal(t, 1, cache.sets)

	// Second lookup is served from cache.
	principal, err = client.Whoami(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, userID, principal.UserID)
	require.Equal(t, 1, calls)
}

func TestWhoamiUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(config.IdentityConfig{WhoamiURL: server.URL}, nil, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)

	principal, err := client.Whoami(context.Background(), "sess-2")
	require.NoError(t, err)
	require.Nil(t, principal)
}

func TestPrincipalStationScope(t *testing.T) {
	stationID := uuid.New()
	other := uuid.New()

	staff := Principal{Role: enums.RoleStaff, StationIDs: []uuid.UUID{stationID}}
	require.True(t, staff.CanOperateStation(stationID))
	require.False(t, staff.CanOperateStation(other))

	admin := Principal{Role: enums.RoleAdmin}
	require.True(t, admin.CanOperateStation(other))

	renter := Principal{Role: enums.RoleRenter, StationIDs: []uuid.UUID{stationID}}
	require.False(t, renter.CanOperateStation(stationID))
}
