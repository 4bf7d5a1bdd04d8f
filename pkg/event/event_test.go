package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFireRoutesByNameAndWildcard(t *testing.T) {
	b := NewBus()
	var named, all []string
	b.Listen(NewOrder, func(_ context.Context, e Event) { named = append(named, e.Name) })
	b.Listen("*", func(_ context.Context, e Event) { all = append(all, e.Name) })

	b.Fire(context.Background(), Event{Name: NewOrder})
	b.Fire(context.Background(), Event{Name: OrderDeleted})

	assert.Equal(t, []string{NewOrder}, named)
	assert.Equal(t, []string{NewOrder, OrderDeleted}, all)
}

func TestFireDefaultsRoomAndTime(t *testing.T) {
	b := NewBus()
	var got Event
	b.Listen(OrderUpdated, func(_ context.Context, e Event) { got = e })

	b.Fire(context.Background(), Event{Name: OrderUpdated, Data: "x"})

	assert.Equal(t, AdminRoom, got.Room)
	assert.False(t, got.At.IsZero())
}
