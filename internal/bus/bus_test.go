package bus

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	b := New(100)
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		b.Subscribe(TypePriceUpdate, name, func(ctx context.Context, evt Event) error {
			order = append(order, name)
			return nil
		})
	}

	b.Publish(context.Background(), NewEvent(TypePriceUpdate, "test", "ingestion", nil))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestFailingHandlerDoesNotBlockOthers(t *testing.T) {
	b := New(100)
	b.Subscribe(TypeNewsArticle, "broken", func(ctx context.Context, evt Event) error {
		return errors.New("boom")
	})
	b.Subscribe(TypeNewsArticle, "panicky", func(ctx context.Context, evt Event) error {
		panic("boom")
	})
	received := 0
	b.Subscribe(TypeNewsArticle, "healthy", func(ctx context.Context, evt Event) error {
		received++
		return nil
	})

	for i := 0; i < 5; i++ {
		b.Publish(context.Background(), NewEvent(TypeNewsArticle, "test", "ingestion", nil))
	}
	assert.Equal(t, 5, received, "healthy subscriber must see every event")
}

func TestWildcardReceivesAllTypesSpecificOnlyItsOwn(t *testing.T) {
	b := New(100)
	var wildcardTypes []EventType
	b.Subscribe(Wildcard, "audit", func(ctx context.Context, evt Event) error {
		wildcardTypes = append(wildcardTypes, evt.Type)
		return nil
	})
	var specific []EventType
	b.Subscribe(TypePriceUpdate, "prices", func(ctx context.Context, evt Event) error {
		specific = append(specific, evt.Type)
		return nil
	})

	ctx := context.Background()
	b.Publish(ctx, NewEvent(TypePriceUpdate, "test", "ingestion", nil))
	b.Publish(ctx, NewEvent(TypeNewsArticle, "test", "ingestion", nil))
	b.Publish(ctx, NewEvent(TypeDriftAlert, "test", "monitor", nil))

	assert.Equal(t, []EventType{TypePriceUpdate, TypeNewsArticle, TypeDriftAlert}, wildcardTypes)
	assert.Equal(t, []EventType{TypePriceUpdate}, specific)
}

func TestWildcardDeliveredAfterExactSubscribers(t *testing.T) {
	b := New(10)
	var order []string
	b.Subscribe(Wildcard, "any", func(ctx context.Context, evt Event) error {
		order = append(order, "any")
		return nil
	})
	b.Subscribe(TypePriceUpdate, "exact", func(ctx context.Context, evt Event) error {
		order = append(order, "exact")
		return nil
	})

	b.Publish(context.Background(), NewEvent(TypePriceUpdate, "test", "ingestion", nil))
	assert.Equal(t, []string{"exact", "any"}, order)
}

func TestHistoryBoundedFIFO(t *testing.T) {
	b := New(5)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 8; i++ {
		evt := NewEvent(TypePriceUpdate, fmt.Sprintf("src-%d", i), "ingestion", nil)
		ids = append(ids, evt.ID)
		b.Publish(ctx, evt)
	}

	hist := b.History()
	require.Len(t, hist, 5)
	assert.Equal(t, 5, b.Len())
	// Oldest three were evicted.
	for i, evt := range hist {
		assert.Equal(t, ids[i+3], evt.ID)
	}
}

func TestHandlerMayPublishFollowUpEvents(t *testing.T) {
	b := New(100)
	b.Subscribe(TypeResearchInsight, "generator", func(ctx context.Context, evt Event) error {
		b.Publish(ctx, NewEvent(TypeAlphaSignal, "generator", "signal", nil))
		return nil
	})
	got := false
	b.Subscribe(TypeAlphaSignal, "downstream", func(ctx context.Context, evt Event) error {
		got = true
		return nil
	})

	b.Publish(context.Background(), NewEvent(TypeResearchInsight, "test", "research", nil))
	assert.True(t, got, "recursive publish must not deadlock")
}

func TestEventIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		evt := NewEvent(TypePriceUpdate, "test", "ingestion", nil)
		require.Len(t, evt.ID, 16)
		require.False(t, seen[evt.ID], "duplicate event id %s", evt.ID)
		seen[evt.ID] = true
	}
}
