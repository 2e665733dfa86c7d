package store

import (
	"context"
	"fmt"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
)

// RoomFacets lists the distinct channel ids and roles (nicknames) present in
// a room, used by filter UIs to offer membership choices. Channel ids, not
// display names, so a facet value feeds FilterSpec.Channels directly.
type RoomFacets struct {
	Channels []string `json:"channels"`
	Roles    []string `json:"roles"`
}

// LogStore is the primary data access interface for cached rooms and messages.
//
// Messages are immutable once stored: sync inserts only ids it has not seen,
// and the sole overwrite path is ReplaceRoom. Reads never mutate.
type LogStore interface {
	// Rooms
	// UpsertRoom merges by roomId: empty incoming title/note keep the stored
	// value, so a re-sync never clobbers a user-edited note.
	UpsertRoom(ctx context.Context, room model.Room) (*model.Room, error)
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)
	// ListRooms returns rooms ordered by lastSyncedAt descending.
	ListRooms(ctx context.Context) ([]model.Room, error)
	// DeleteRoom removes the room record and all of its messages.
	DeleteRoom(ctx context.Context, roomID string) error
	SetRoomNote(ctx context.Context, roomID string, note string) (*model.Room, error)

	// Messages
	BulkUpsertMessages(ctx context.Context, messages []model.Message) error
	// ExistingMessageIDs reports which of the given ids are already stored.
	ExistingMessageIDs(ctx context.Context, ids []string) (map[string]bool, error)
	DeleteMessagesForRoom(ctx context.Context, roomID string) error
	CountMessagesForRoom(ctx context.Context, roomID string) (int64, error)
	// MessagesInRange scans the (roomId,timestampMs) composite index with an
	// inclusive [start,end] range (nil bound = unbounded) and always returns
	// rows sorted ascending by timestampMs.
	MessagesInRange(ctx context.Context, roomID string, start, end *int64) ([]model.Message, error)
	RoomFacets(ctx context.Context, roomID string) (*RoomFacets, error)

	// ReplaceRoom atomically replaces a room's cache: within one transaction
	// it deletes the room's messages, inserts the given set, and upserts the
	// room record. On error nothing is applied.
	ReplaceRoom(ctx context.Context, room model.Room, messages []model.Message) error

	Close() error
}

// Loader creates a LogStore from config carried in ctx.
type Loader func(ctx context.Context) (LogStore, error)

// Plugin represents a store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a store plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown store %q; valid: %v", name, Names())
}
