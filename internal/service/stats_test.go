package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/store"
)

type fakeStore struct {
	store.LogStore

	rooms  map[string]model.Room
	counts map[string]int64
}

func (f *fakeStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	var out []model.Room
	for _, r := range f.rooms {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) CountMessagesForRoom(ctx context.Context, roomID string) (int64, error) {
	return f.counts[roomID], nil
}

func (f *fakeStore) UpsertRoom(ctx context.Context, room model.Room) (*model.Room, error) {
	existing := f.rooms[room.RoomID]
	if room.Title == "" {
		room.Title = existing.Title
	}
	f.rooms[room.RoomID] = room
	return &room, nil
}

func TestRefreshOnceCorrectsDrift(t *testing.T) {
	fs := &fakeStore{
		rooms: map[string]model.Room{
			"drifted": {RoomID: "drifted", Title: "A", LastSyncedAt: 100, MessageCount: 7},
			"exact":   {RoomID: "exact", Title: "B", LastSyncedAt: 200, MessageCount: 3},
		},
		counts: map[string]int64{"drifted": 9, "exact": 3},
	}

	r := NewStatsRefresher(fs, time.Minute)
	require.NoError(t, r.RefreshOnce(context.Background()))

	require.Equal(t, int64(9), fs.rooms["drifted"].MessageCount)
	require.Equal(t, int64(100), fs.rooms["drifted"].LastSyncedAt, "reconciling count keeps the sync watermark")
	require.Equal(t, int64(3), fs.rooms["exact"].MessageCount)
	require.Equal(t, "B", fs.rooms["exact"].Title)
}

func TestStartDisabledReturnsImmediately(t *testing.T) {
	r := NewStatsRefresher(&fakeStore{}, 0)

	done := make(chan struct{})
	go func() {
		r.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled refresher did not return")
	}
}
