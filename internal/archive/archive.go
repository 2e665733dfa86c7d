// Package archive exports a room's cached state as JSON and imports such
// documents back, replacing the room atomically.
package archive

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/store"
)

// CachePayload is the exported document: the room record plus every message.
type CachePayload struct {
	Room       *model.Room     `json:"room,omitempty"`
	RoomID     string          `json:"roomId,omitempty"`
	Messages   []model.Message `json:"messages,omitempty"`
	ExportedAt int64           `json:"exportedAt,omitempty"`

	// Logs is a legacy alias for Messages accepted on import.
	Logs []model.Message `json:"logs,omitempty"`
}

// ExportCache builds the cache payload for a room.
func ExportCache(ctx context.Context, s store.LogStore, roomID string) (*CachePayload, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	messages, err := s.MessagesInRange(ctx, roomID, nil, nil)
	if err != nil {
		return nil, err
	}
	return &CachePayload{
		Room:       room,
		RoomID:     room.RoomID,
		Messages:   messages,
		ExportedAt: time.Now().UnixMilli(),
	}, nil
}

// ImportCache parses a cache document and replaces the target room with its
// contents. Validation happens before any store mutation; on error the store
// is untouched.
func ImportCache(ctx context.Context, s store.LogStore, raw []byte) (*model.Room, error) {
	var payload CachePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &store.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}

	messages := payload.Messages
	if messages == nil {
		messages = payload.Logs
	}

	// An empty list is a valid document: it clears the room. Only a document
	// with no determinable target room is rejected.
	roomID := inferRoomID(payload, messages)
	if roomID == "" {
		return nil, &store.ValidationError{Field: "roomId", Message: "cannot determine room id from import document"}
	}

	now := time.Now().UnixMilli()
	for i := range messages {
		messages[i].RoomID = roomID
		if messages[i].ID == "" {
			messages[i].ID = "import/" + roomID + "/" + uuid.NewString()
		}
		if messages[i].TimestampMs <= 0 {
			messages[i].TimestampMs = now
		}
		applyDefaults(&messages[i])
	}

	room := model.Room{
		RoomID:       roomID,
		MessageCount: int64(len(messages)),
		LastSyncedAt: now,
	}
	if payload.Room != nil {
		room.Title = payload.Room.Title
		room.Note = payload.Room.Note
		if payload.Room.LastSyncedAt > 0 {
			room.LastSyncedAt = payload.Room.LastSyncedAt
		}
	}
	if room.Title == "" {
		room.Title = roomID
	}

	if err := s.ReplaceRoom(ctx, room, messages); err != nil {
		return nil, err
	}
	return &room, nil
}

// inferRoomID resolves the target room in order: embedded room record,
// top-level roomId, then the first message that carries one.
func inferRoomID(payload CachePayload, messages []model.Message) string {
	if payload.Room != nil && payload.Room.RoomID != "" {
		return payload.Room.RoomID
	}
	if payload.RoomID != "" {
		return payload.RoomID
	}
	for _, m := range messages {
		if m.RoomID != "" {
			return m.RoomID
		}
	}
	return ""
}

func applyDefaults(m *model.Message) {
	if m.Nickname == "" {
		m.Nickname = model.DefaultNickname
	}
	if m.Color == "" {
		m.Color = model.DefaultColor
	}
	if m.ChannelID == "" {
		m.ChannelID = model.DefaultChannelID
	}
	if m.ChannelName == "" {
		m.ChannelName = model.DefaultChannelName
	}
}
