// Package metrics wraps a LogStore and records operation latency.
package metrics

import (
	"context"
	"time"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/store"
	"github.com/kagangtuya-star/cclog-plus/internal/security"
)

// Wrap returns a LogStore that records StoreLatency for every operation.
func Wrap(inner store.LogStore) store.LogStore {
	return &metricsStore{inner: inner}
}

type metricsStore struct {
	inner store.LogStore
}

func observe(op string, start time.Time) {
	if security.StoreLatency != nil {
		security.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (m *metricsStore) UpsertRoom(ctx context.Context, room model.Room) (*model.Room, error) {
	defer observe("upsert_room", time.Now())
	return m.inner.UpsertRoom(ctx, room)
}

func (m *metricsStore) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	defer observe("get_room", time.Now())
	return m.inner.GetRoom(ctx, roomID)
}

func (m *metricsStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	defer observe("list_rooms", time.Now())
	return m.inner.ListRooms(ctx)
}

func (m *metricsStore) DeleteRoom(ctx context.Context, roomID string) error {
	defer observe("delete_room", time.Now())
	return m.inner.DeleteRoom(ctx, roomID)
}

func (m *metricsStore) SetRoomNote(ctx context.Context, roomID string, note string) (*model.Room, error) {
	defer observe("set_room_note", time.Now())
	return m.inner.SetRoomNote(ctx, roomID, note)
}

func (m *metricsStore) BulkUpsertMessages(ctx context.Context, messages []model.Message) error {
	defer observe("bulk_upsert_messages", time.Now())
	return m.inner.BulkUpsertMessages(ctx, messages)
}

func (m *metricsStore) ExistingMessageIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	defer observe("existing_message_ids", time.Now())
	return m.inner.ExistingMessageIDs(ctx, ids)
}

func (m *metricsStore) DeleteMessagesForRoom(ctx context.Context, roomID string) error {
	defer observe("delete_messages_for_room", time.Now())
	return m.inner.DeleteMessagesForRoom(ctx, roomID)
}

func (m *metricsStore) CountMessagesForRoom(ctx context.Context, roomID string) (int64, error) {
	defer observe("count_messages_for_room", time.Now())
	return m.inner.CountMessagesForRoom(ctx, roomID)
}

func (m *metricsStore) MessagesInRange(ctx context.Context, roomID string, start, end *int64) ([]model.Message, error) {
	defer observe("messages_in_range", time.Now())
	return m.inner.MessagesInRange(ctx, roomID, start, end)
}

func (m *metricsStore) RoomFacets(ctx context.Context, roomID string) (*store.RoomFacets, error) {
	defer observe("room_facets", time.Now())
	return m.inner.RoomFacets(ctx, roomID)
}

func (m *metricsStore) ReplaceRoom(ctx context.Context, room model.Room, messages []model.Message) error {
	defer observe("replace_room", time.Now())
	return m.inner.ReplaceRoom(ctx, room, messages)
}

func (m *metricsStore) Close() error {
	return m.inner.Close()
}

var _ store.LogStore = (*metricsStore)(nil)
