package session

import (
	"context"
	"testing"
	"time"

	"steel-copilot-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroadcaster() *Broadcaster {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	return NewBroadcaster(pubSub, logger.NewNopLogger())
}

func TestInvalidationReachesSubscriber(t *testing.T) {
	b := newTestBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan InvalidationNotice, 1)
	require.NoError(t, b.OnInvalidated(ctx, func(n InvalidationNotice) { received <- n }))

	require.NoError(t, b.AnnounceInvalidated(ctx, InvalidationNotice{UserId: "usr-1", SessionId: "sess-a"}))

	select {
	case notice := <-received:
		assert.Equal(t, "usr-1", notice.UserId)
		assert.Equal(t, "sess-a", notice.SessionId)
	case <-time.After(time.Second):
		t.Fatal("invalidation notice never arrived")
	}
}

func TestExpiryReachesEverySubscriber(t *testing.T) {
	b := newTestBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := make(chan ExpiryNotice, 1)
	second := make(chan ExpiryNotice, 1)
	require.NoError(t, b.OnExpired(ctx, func(n ExpiryNotice) { first <- n }))
	require.NoError(t, b.OnExpired(ctx, func(n ExpiryNotice) { second <- n }))

	require.NoError(t, b.AnnounceExpired(ctx, ExpiryNotice{
		UserId:  "usr-1",
		Message: "Your session has expired. Please log in again.",
	}))

	for _, ch := range []chan ExpiryNotice{first, second} {
		select {
		case notice := <-ch:
			assert.Equal(t, "Your session has expired. Please log in again.", notice.Message)
		case <-time.After(time.Second):
			t.Fatal("expiry notice never arrived")
		}
	}
}
