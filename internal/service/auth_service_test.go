package service

import (
	"context"
	"testing"
	"time"

	"steel-copilot-be/internal/dto"
	"steel-copilot-be/internal/entity"
	"steel-copilot-be/internal/pkg/logger"
	"steel-copilot-be/internal/session"
	"steel-copilot-be/internal/storage"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc         IAuthService
	store       storage.Store
	table       *session.ActiveTable
	broadcaster *session.Broadcaster
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := storage.NewMemoryStore()
	table := session.NewActiveTable()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	broadcaster := session.NewBroadcaster(pubSub, logger.NewNopLogger())

	svc := NewAuthService(
		NewUserDirectory(),
		store,
		table,
		broadcaster,
		nil,
		logger.NewNopLogger(),
		"test-secret",
		7*24*time.Hour,
		time.Minute,
	)
	return &authFixture{svc: svc, store: store, table: table, broadcaster: broadcaster}
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "user@example.com",
		Password: "user123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, res.SessionId)
	assert.Equal(t, "user@example.com", res.User.Email)
	assert.Equal(t, []string{"demand-planning", "supply-planning"}, res.User.AllowedModules)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), res.ExpiresAt, time.Minute)

	token, found := f.store.Get(storage.KeyAuthToken)
	assert.True(t, found)
	assert.Equal(t, res.Token, token)

	sessionId, _ := f.store.Get(storage.KeySessionId)
	assert.Equal(t, res.SessionId, sessionId)
	assert.True(t, f.table.IsActive(res.User.Id, res.SessionId))
}

func TestLoginCollapsesUnknownUserAndBadPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, errUnknown := f.svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	_, errBadPass := f.svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "user@example.com",
		Password: "wrong",
	})

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errBadPass, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errBadPass.Error())
}

func TestSecondLoginEvictsFirstSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	notices := make(chan session.InvalidationNotice, 1)
	require.NoError(t, f.broadcaster.OnInvalidated(ctx, func(n session.InvalidationNotice) { notices <- n }))

	first, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)

	assert.False(t, f.svc.IsSessionActive(first.User.Id, first.SessionId))
	assert.True(t, f.svc.IsSessionActive(second.User.Id, second.SessionId))

	select {
	case n := <-notices:
		assert.Equal(t, first.User.Id, n.UserId)
		assert.Equal(t, first.SessionId, n.SessionId)
	case <-time.After(time.Second):
		t.Fatal("no invalidation notice for the evicted session")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx))
	require.NoError(t, f.svc.Logout(ctx))

	_, found := f.store.Get(storage.KeyAuthToken)
	assert.False(t, found)
	assert.False(t, f.svc.IsSessionActive(res.User.Id, res.SessionId))
}

func TestCheckAuthStatus(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	status, err := f.svc.CheckAuthStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Authenticated)

	_, err = f.svc.Login(ctx, &dto.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)

	status, err = f.svc.CheckAuthStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Authenticated)
	require.NotNil(t, status.User)
	assert.Equal(t, "user@example.com", status.User.Email)
	require.NotNil(t, status.ExpiresAt)
}

func TestExpiredSessionIsClearedAndAnnounced(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	expiries := make(chan session.ExpiryNotice, 1)
	require.NoError(t, f.broadcaster.OnExpired(ctx, func(n session.ExpiryNotice) { expiries <- n }))

	res, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)

	// Force the persisted expiry into the past.
	f.store.Set(storage.KeySessionExpiry, time.Now().Add(-time.Hour).Format(time.RFC3339))

	status, err := f.svc.CheckAuthStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Authenticated)

	_, found := f.store.Get(storage.KeyAuthToken)
	assert.False(t, found)
	assert.False(t, f.svc.IsSessionActive(res.User.Id, res.SessionId))

	select {
	case n := <-expiries:
		assert.Equal(t, "Your session has expired. Please log in again.", n.Message)
	case <-time.After(time.Second):
		t.Fatal("no expiry notice")
	}
}

func TestTokenClearedElsewhereDropsLocalSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)

	// Another context clearing the token is observed through the store watch
	// and tears down the rest of the session keys here too.
	f.store.Delete(storage.KeyAuthToken)

	_, found := f.store.Get(storage.KeyCurrentUser)
	assert.False(t, found)
	_, found = f.store.Get(storage.KeySessionId)
	assert.False(t, found)
}

func TestModuleAndAgentAccess(t *testing.T) {
	f := newAuthFixture(t)
	directory := NewUserDirectory()

	admin := directory.FindByEmail("admin@example.com")
	user := directory.FindByEmail("user@example.com")
	require.NotNil(t, admin)
	require.NotNil(t, user)

	assert.True(t, f.svc.HasModuleAccess(admin, "risk-management"))
	assert.True(t, f.svc.HasModuleAccess(admin, "module-that-does-not-exist"))
	assert.True(t, f.svc.HasAgentAccess(admin, 999))

	assert.True(t, f.svc.HasModuleAccess(user, "demand-planning"))
	assert.False(t, f.svc.HasModuleAccess(user, "risk-management"))
	assert.True(t, f.svc.HasAgentAccess(user, 101))
	assert.False(t, f.svc.HasAgentAccess(user, 103))

	assert.False(t, f.svc.HasModuleAccess(nil, "demand-planning"))
	var missing *entity.User
	assert.False(t, f.svc.HasAgentAccess(missing, 101))
}

func TestSweepOnceExpiresStaleSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.NoError(t, err)

	f.store.Set(storage.KeySessionExpiry, time.Now().Add(-time.Minute).Format(time.RFC3339))
	f.svc.(*authService).sweepOnce(ctx)

	_, found := f.store.Get(storage.KeyAuthToken)
	assert.False(t, found)
	assert.False(t, f.svc.IsSessionActive(res.User.Id, res.SessionId))
}
