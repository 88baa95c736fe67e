package collab_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackerhq/tracker/internal/collab"
)

func appendEvent(id string) func(*collab.Root) error {
	return func(r *collab.Root) error {
		r.Events = append(r.Events, collab.Event{ID: id, Text: "t-" + id, Author: "a", CreatedAt: time.UnixMilli(1700000000000)})
		return nil
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change signal")
	}
}

func TestEvent_JSONUsesEpochMillis(t *testing.T) {
	ev := collab.Event{ID: "e1", Text: "hi", Author: "bob", CreatedAt: time.UnixMilli(1700000000123)}
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"e1","text":"hi","author":"bob","createdAt":1700000000123}`, string(data))

	var back collab.Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, ev.CreatedAt.Equal(back.CreatedAt))
}

func TestMemoryDocument_SharedAndNotifies(t *testing.T) {
	ctx := context.Background()
	opener := collab.NewMemoryOpener()

	a, err := opener.Open(ctx, "i1")
	require.NoError(t, err)
	b, err := opener.Open(ctx, "i1")
	require.NoError(t, err)

	changes, stop := b.Subscribe()
	defer stop()

	require.NoError(t, a.Update(ctx, appendEvent("e1")))
	waitSignal(t, changes)
	assert.Len(t, b.Root().Events, 1)
}

func TestMemoryDocument_FailedMutationWritesNothing(t *testing.T) {
	ctx := context.Background()
	doc := collab.NewMemoryDocument("i1", collab.Root{Status: "ongoing"})

	err := doc.Update(ctx, func(r *collab.Root) error {
		r.Status = "resolved"
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.Equal(t, "ongoing", doc.Root().Status)
}

func TestMemoryDocument_ConcurrentAppendsConverge(t *testing.T) {
	ctx := context.Background()
	doc := collab.NewMemoryDocument("i1", collab.Root{})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, doc.Update(ctx, appendEvent(fmt.Sprint(i))))
		}()
	}
	wg.Wait()
	assert.Len(t, doc.Root().Events, 50)
}

func TestMemoryDocument_RootIsACopy(t *testing.T) {
	doc := collab.NewMemoryDocument("i1", collab.Root{})
	require.NoError(t, doc.Update(context.Background(), appendEvent("e1")))

	root := doc.Root()
	root.Events[0].Text = "mutated"
	assert.Equal(t, "t-e1", doc.Root().Events[0].Text)
}

func TestFileDocument_PersistsAcrossOpeners(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := collab.NewFileOpener(dir, zerolog.Nop())
	doc, err := first.Open(ctx, "issue/1")
	require.NoError(t, err)
	require.NoError(t, doc.Update(ctx, appendEvent("e1")))
	require.NoError(t, doc.Update(ctx, func(r *collab.Root) error { r.Status = "resolved"; return nil }))
	require.NoError(t, doc.Close())
	assert.ErrorIs(t, doc.Update(ctx, appendEvent("late")), collab.ErrClosed)

	second := collab.NewFileOpener(dir, zerolog.Nop())
	again, err := second.Open(ctx, "issue/1")
	require.NoError(t, err)
	root := again.Root()
	assert.Equal(t, "resolved", root.Status)
	require.Len(t, root.Events, 1)
	assert.Equal(t, "e1", root.Events[0].ID)

	_, err = os.Stat(filepath.Join(dir, "issue_1.json"))
	assert.NoError(t, err)
}

func TestFileDocument_UpdateRereadsDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a, err := collab.NewFileOpener(dir, zerolog.Nop()).Open(ctx, "i1")
	require.NoError(t, err)
	b, err := collab.NewFileOpener(dir, zerolog.Nop()).Open(ctx, "i1")
	require.NoError(t, err)

	require.NoError(t, a.Update(ctx, appendEvent("from-a")))
	require.NoError(t, b.Update(ctx, appendEvent("from-b")))

	assert.Len(t, b.Root().Events, 2)
}

func TestFileDocument_CorruptReplicaReportsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "i1.json"), []byte("{nope"), 0o600))

	doc, err := collab.NewFileOpener(dir, zerolog.Nop()).Open(context.Background(), "i1")
	require.NoError(t, err)
	assert.Error(t, doc.State().Err)
}

func newRedisOpener(t *testing.T, addr string) *collab.RedisOpener {
	t.Helper()
	client, err := collab.NewRedisClient(context.Background(), collab.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return collab.NewRedisOpener(client, zerolog.Nop())
}

func TestRedisDocument_RemoteChangesPropagate(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	a, err := newRedisOpener(t, mr.Addr()).Open(ctx, "i1")
	require.NoError(t, err)
	defer a.Close()
	b, err := newRedisOpener(t, "redis://"+mr.Addr()).Open(ctx, "i1")
	require.NoError(t, err)
	defer b.Close()

	assert.False(t, a.State().Loading)

	changes, stop := b.Subscribe()
	defer stop()

	require.NoError(t, a.Update(ctx, appendEvent("e1")))
	waitSignal(t, changes)

	require.Eventually(t, func() bool { return len(b.Root().Events) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "e1", b.Root().Events[0].ID)
}

func TestRedisDocument_ConcurrentWritersConverge(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	a, err := newRedisOpener(t, mr.Addr()).Open(ctx, "i1")
	require.NoError(t, err)
	defer a.Close()
	b, err := newRedisOpener(t, mr.Addr()).Open(ctx, "i1")
	require.NoError(t, err)
	defer b.Close()

	var wg sync.WaitGroup
	for i := range 5 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Update(ctx, appendEvent(fmt.Sprintf("a%d", i))))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Update(ctx, appendEvent(fmt.Sprintf("b%d", i))))
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return len(a.Root().Events) == 10 }, 2*time.Second, 10*time.Millisecond)
}

func TestRedisDocument_APIKey(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	_, err := collab.NewRedisClient(context.Background(), collab.RedisConfig{Addr: mr.Addr()})
	assert.Error(t, err)

	client, err := collab.NewRedisClient(context.Background(), collab.RedisConfig{Addr: mr.Addr(), APIKey: "s3cret"})
	require.NoError(t, err)
	_ = client.Close()
}
