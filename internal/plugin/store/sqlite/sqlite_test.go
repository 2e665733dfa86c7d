package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kagangtuya-star/cclog-plus/internal/config"
	"github.com/kagangtuya-star/cclog-plus/internal/model"
	registrystore "github.com/kagangtuya-star/cclog-plus/internal/registry/store"
)

func newTestStore(t *testing.T) registrystore.LogStore {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	ctx := config.WithContext(context.Background(), &cfg)

	m := &migrator{}
	require.NoError(t, m.Migrate(ctx))

	s, err := load(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func msg(id, roomID string, ts int64) model.Message {
	return model.Message{
		ID:          id,
		RoomID:      roomID,
		ChannelID:   model.DefaultChannelID,
		ChannelName: model.DefaultChannelName,
		Nickname:    model.DefaultNickname,
		Color:       model.DefaultColor,
		TimestampMs: ts,
	}
}

func TestUpsertRoomMerge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// New room with no title defaults to the room id.
	room, err := s.UpsertRoom(ctx, model.Room{RoomID: "r1", LastSyncedAt: 100})
	require.NoError(t, err)
	require.Equal(t, "r1", room.Title)

	// User edits survive a later sync upsert.
	room.Title = "The Dungeon"
	room.Note = "session one"
	_, err = s.UpsertRoom(ctx, *room)
	require.NoError(t, err)

	room, err = s.UpsertRoom(ctx, model.Room{RoomID: "r1", LastSyncedAt: 200, MessageCount: 5})
	require.NoError(t, err)
	require.Equal(t, "The Dungeon", room.Title)
	require.Equal(t, "session one", room.Note)
	require.Equal(t, int64(200), room.LastSyncedAt)
	require.Equal(t, int64(5), room.MessageCount)
}

func TestListRoomsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertRoom(ctx, model.Room{RoomID: "old", LastSyncedAt: 100})
	require.NoError(t, err)
	_, err = s.UpsertRoom(ctx, model.Room{RoomID: "new", LastSyncedAt: 300})
	require.NoError(t, err)

	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.Equal(t, "new", rooms[0].RoomID)
	require.Equal(t, "old", rooms[1].RoomID)
}

func TestDeleteRoomRemovesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertRoom(ctx, model.Room{RoomID: "r1", LastSyncedAt: 1})
	require.NoError(t, err)
	require.NoError(t, s.BulkUpsertMessages(ctx, []model.Message{msg("m1", "r1", 1), msg("m2", "r1", 2)}))

	require.NoError(t, s.DeleteRoom(ctx, "r1"))

	count, err := s.CountMessagesForRoom(ctx, "r1")
	require.NoError(t, err)
	require.Zero(t, count)

	_, err = s.GetRoom(ctx, "r1")
	var notFound *registrystore.NotFoundError
	require.ErrorAs(t, err, &notFound)

	err = s.DeleteRoom(ctx, "r1")
	require.ErrorAs(t, err, &notFound)
}

func TestExistingMessageIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BulkUpsertMessages(ctx, []model.Message{msg("m1", "r1", 1)}))

	existing, err := s.ExistingMessageIDs(ctx, []string{"m1", "m2"})
	require.NoError(t, err)
	require.True(t, existing["m1"])
	require.False(t, existing["m2"])

	existing, err = s.ExistingMessageIDs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, existing)
}

func TestMessagesInRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BulkUpsertMessages(ctx, []model.Message{
		msg("m3", "r1", 30),
		msg("m1", "r1", 10),
		msg("m2", "r1", 20),
		msg("x1", "other", 15),
	}))

	all, err := s.MessagesInRange(ctx, "r1", nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"m1", "m2", "m3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	start, end := int64(10), int64(20)
	bounded, err := s.MessagesInRange(ctx, "r1", &start, &end)
	require.NoError(t, err)
	require.Len(t, bounded, 2)
	require.Equal(t, "m1", bounded[0].ID)
	require.Equal(t, "m2", bounded[1].ID)
}

func TestRoomFacets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := msg("m1", "r1", 1)
	a.Nickname = "Alice"
	b := msg("m2", "r1", 2)
	b.ChannelID = "ooc"
	b.ChannelName = "闲聊"
	b.Nickname = "Bob"
	c := msg("m3", "r1", 3)
	c.Nickname = "Alice"
	require.NoError(t, s.BulkUpsertMessages(ctx, []model.Message{a, b, c}))

	// Facets carry channel ids, not display names, so they can be fed back
	// into a filter unchanged.
	facets, err := s.RoomFacets(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, []string{"main", "ooc"}, facets.Channels)
	require.Equal(t, []string{"Alice", "Bob"}, facets.Roles)
}

func TestReplaceRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertRoom(ctx, model.Room{RoomID: "r1", LastSyncedAt: 1})
	require.NoError(t, err)
	require.NoError(t, s.BulkUpsertMessages(ctx, []model.Message{msg("old1", "r1", 1), msg("old2", "r1", 2)}))

	replacement := []model.Message{msg("new1", "r1", 5)}
	require.NoError(t, s.ReplaceRoom(ctx, model.Room{RoomID: "r1", Title: "replaced", LastSyncedAt: 5, MessageCount: 1}, replacement))

	all, err := s.MessagesInRange(ctx, "r1", nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "new1", all[0].ID)

	room, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "replaced", room.Title)
}

func TestCommandInfoRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := msg("m1", "r1", 1)
	m.CommandInfo = map[string]interface{}{"result": "1d100=42", "success": true}
	require.NoError(t, s.BulkUpsertMessages(ctx, []model.Message{m}))

	all, err := s.MessagesInRange(ctx, "r1", nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "1d100=42", all[0].CommandInfo["result"])
	require.Equal(t, true, all[0].CommandInfo["success"])
}
