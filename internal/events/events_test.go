package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"promptvault/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublishRunsExactAndPatternHandlers(t *testing.T) {
	bus := NewEventBus(nil, zap.NewNop())
	var exact, pattern, other atomic.Int32

	require.NoError(t, bus.Subscribe(TypePromptLiked, NewEventHandlerFunc("exact", func(context.Context, Event) error {
		exact.Add(1)
		return nil
	})))
	require.NoError(t, bus.SubscribePattern("prompt.*", NewEventHandlerFunc("pattern", func(context.Context, Event) error {
		pattern.Add(1)
		return nil
	})))
	require.NoError(t, bus.SubscribePattern("comment.*", NewEventHandlerFunc("other", func(context.Context, Event) error {
		other.Add(1)
		return nil
	})))

	require.NoError(t, bus.Publish(context.Background(), NewPromptLikedEvent(2, 10, 1)))

	assert.Equal(t, int32(1), exact.Load())
	assert.Equal(t, int32(1), pattern.Load())
	assert.Equal(t, int32(0), other.Load())
	assert.Equal(t, 3, bus.Stats().HandlersCount)
}

func TestPublishReportsFailingAndPanickingHandlers(t *testing.T) {
	bus := NewEventBus(nil, zap.NewNop())
	var ran atomic.Int32

	require.NoError(t, bus.Subscribe(TypeUserFollowed, NewEventHandlerFunc("boom", func(context.Context, Event) error {
		panic("boom")
	})))
	require.NoError(t, bus.Subscribe(TypeUserFollowed, NewEventHandlerFunc("fails", func(context.Context, Event) error {
		return errors.New("nope")
	})))
	require.NoError(t, bus.Subscribe(TypeUserFollowed, NewEventHandlerFunc("ok", func(context.Context, Event) error {
		ran.Add(1)
		return nil
	})))

	err := bus.Publish(context.Background(), NewUserFollowedEvent(1, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 out of 3")
	assert.Equal(t, int32(1), ran.Load(), "later handlers still run")
	assert.Equal(t, int64(1), bus.Stats().EventsFailed)
}

func TestPublishAsyncDeliversAfterRequestContextEnds(t *testing.T) {
	bus := NewEventBus(&EventBusConfig{BufferSize: 10, WorkerCount: 2, HandlerTimeout: time.Second}, zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))

	var (
		wg      sync.WaitGroup
		ctxErrs atomic.Int32
	)
	wg.Add(3)
	require.NoError(t, bus.Subscribe(TypePromptCreated, NewTypedEventHandler("typed", func(ctx context.Context, e *PromptCreatedEvent) error {
		defer wg.Done()
		if ctx.Err() != nil {
			ctxErrs.Add(1)
		}
		return nil
	})))

	reqCtx, cancel := context.WithCancel(context.Background())
	for i := int64(1); i <= 3; i++ {
		p := &models.Prompt{ID: i, UserID: 7, AIAgent: "Claude", Category: "Coding"}
		require.NoError(t, bus.PublishAsync(reqCtx, NewPromptCreatedEvent(p)))
	}
	cancel()

	wg.Wait()
	assert.Equal(t, int32(0), ctxErrs.Load())

	require.NoError(t, bus.Stop(context.Background()))
	stats := bus.Stats()
	assert.Equal(t, int64(3), stats.EventsPublished)
	assert.Equal(t, int64(3), stats.EventsProcessed)
}

func TestPublishAsyncFailsWhenQueueFull(t *testing.T) {
	bus := NewEventBus(&EventBusConfig{BufferSize: 1, WorkerCount: 1}, zap.NewNop())

	require.NoError(t, bus.PublishAsync(context.Background(), NewUserRegisteredEvent(1, "alice")))
	err := bus.PublishAsync(context.Background(), NewUserRegisteredEvent(2, "bob"))
	require.Error(t, err)
	assert.Equal(t, int64(1), bus.Stats().EventsDropped)

	require.NoError(t, bus.Stop(context.Background()))
	assert.Error(t, bus.Health())
	assert.Error(t, bus.PublishAsync(context.Background(), NewUserRegisteredEvent(3, "carol")))
}

func TestStopDrainsQueuedEvents(t *testing.T) {
	bus := NewEventBus(&EventBusConfig{BufferSize: 10, WorkerCount: 1}, zap.NewNop())
	var handled atomic.Int32
	require.NoError(t, bus.Subscribe(TypeCommentLiked, NewEventHandlerFunc("count", func(context.Context, Event) error {
		handled.Add(1)
		return nil
	})))

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, bus.PublishAsync(context.Background(), NewCommentLikedEvent(1, i, 2)))
	}
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Stop(context.Background()))

	assert.Equal(t, int32(5), handled.Load())
}

func TestAffectedUsers(t *testing.T) {
	parent := int64(3)
	self := int64(5)

	tests := []struct {
		name  string
		event ActivityEvent
		want  []int64
	}{
		{"register", NewUserRegisteredEvent(1, "alice"), []int64{1}},
		{"follow affects both ends", NewUserFollowedEvent(1, 2), []int64{1, 2}},
		{"like affects author", NewPromptLikedEvent(9, 100, 4), []int64{4}},
		{"rating affects author", NewPromptRatedEvent(9, 100, 4, 5), []int64{4}},
		{"comment like affects author", NewCommentLikedEvent(9, 100, 4), []int64{4}},
		{"top-level comment", NewCommentPostedEvent(&models.Comment{ID: 1, UserID: 5}, nil), []int64{5}},
		{"reply affects parent author", NewCommentPostedEvent(&models.Comment{ID: 2, UserID: 5}, &parent), []int64{5, 3}},
		{"self reply deduplicated", NewCommentPostedEvent(&models.Comment{ID: 3, UserID: 5}, &self), []int64{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.AffectedUsers())
		})
	}
}

func TestActivityPatternsCoverActivityButNotAwards(t *testing.T) {
	matches := func(eventType string) bool {
		for _, p := range ActivityPatterns {
			if matchesPattern(eventType, p) {
				return true
			}
		}
		return false
	}

	for _, typ := range []string{TypeUserRegistered, TypeUserFollowed, TypePromptCreated, TypePromptRated, TypePromptLiked, TypeCommentPosted, TypeCommentLiked} {
		assert.True(t, matches(typ), typ)
	}
	assert.False(t, matches(TypeBadgeAwarded))
}
