package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeInserter struct {
	mu   sync.Mutex
	docs []LogDocument
}

func (f *fakeInserter) InsertMany(_ context.Context, docs []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range docs {
		f.docs = append(f.docs, d.(LogDocument))
	}
	return &mongo.InsertManyResult{}, nil
}

func TestMongoHandlerFlushesOnClose(t *testing.T) {
	col := &fakeInserter{}
	h := NewMongoHandler(col, slog.LevelInfo)

	log := slog.New(h).With("request_id", "rid-1")
	log.Info("order created", "order_id", "JUSH-1")
	log.Debug("filtered out")
	log.WithGroup("socket").Warn("client dropped", "room", "admin-room")

	h.Close()
	h.Close()

	col.mu.Lock()
	defer col.mu.Unlock()
	require.Len(t, col.docs, 2)

	assert.Equal(t, "order created", col.docs[0].Msg)
	assert.Equal(t, "rid-1", col.docs[0].RequestID)
	assert.Equal(t, "JUSH-1", col.docs[0].Attrs["order_id"])

	assert.Equal(t, "WARN", col.docs[1].Level)
	assert.Equal(t, "admin-room", col.docs[1].Attrs["socket.room"])
}

func TestWithCtxFallsBackToBase(t *testing.T) {
	assert.Same(t, L, WithCtx(context.Background()))

	scoped := slog.New(slog.NewTextHandler(nil, nil))
	ctx := InjectLogger(context.Background(), scoped)
	assert.Same(t, scoped, WithCtx(ctx))
}
