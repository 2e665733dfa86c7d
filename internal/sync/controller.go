// Package sync pulls a room's chat log from the remote document API into the
// local store, page by page.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/normalize"
	"github.com/kagangtuya-star/cclog-plus/internal/remote"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/store"
	"github.com/kagangtuya-star/cclog-plus/internal/security"
)

// ErrSyncInProgress is returned when a sync is requested for a room that is
// already syncing.
var ErrSyncInProgress = errors.New("sync already in progress for this room")

// Options control a single sync run.
type Options struct {
	// ForceRefresh deletes the room's stored messages before fetching, so the
	// run rebuilds the cache from scratch.
	ForceRefresh bool
	// Progress, when set, is called after each committed page.
	Progress func(model.SyncProgress)
}

// Result summarizes a completed sync run.
type Result struct {
	Room    *model.Room `json:"room"`
	Fetched int         `json:"fetched"`
}

// Controller runs syncs and tracks per-room sync state. At most one sync per
// room runs at a time; concurrent requests for the same room are rejected.
type Controller struct {
	store    store.LogStore
	client   *remote.Client
	pageSize int

	mu     sync.Mutex
	states map[string]model.SyncState
}

// NewController builds a Controller over the given store and remote client.
func NewController(s store.LogStore, client *remote.Client, pageSize int) *Controller {
	if pageSize < 1 {
		pageSize = 300
	}
	return &Controller{
		store:    s,
		client:   client,
		pageSize: pageSize,
		states:   make(map[string]model.SyncState),
	}
}

// State returns the current sync state for a room.
func (c *Controller) State(roomID string) model.SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[roomID]; ok {
		return s
	}
	return model.SyncStateIdle
}

func (c *Controller) begin(roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states[roomID] == model.SyncStateSyncing {
		return ErrSyncInProgress
	}
	c.states[roomID] = model.SyncStateSyncing
	return nil
}

func (c *Controller) finish(roomID string, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if failed {
		c.states[roomID] = model.SyncStateFailed
	} else {
		c.states[roomID] = model.SyncStateIdle
	}
}

// Sync fetches the room's messages until the remote runs out of pages or a
// page turns out to be already fully stored. Committed pages survive a
// mid-run failure; the next run resumes from whatever is stored.
func (c *Controller) Sync(ctx context.Context, roomID string, opts Options) (*Result, error) {
	roomID = remote.NormalizeRoomID(roomID)
	if roomID == "" {
		return nil, &store.ValidationError{Field: "roomId", Message: "room id is required"}
	}
	if err := c.begin(roomID); err != nil {
		return nil, err
	}
	result, err := c.run(ctx, roomID, opts)
	c.finish(roomID, err != nil)
	return result, err
}

func (c *Controller) run(ctx context.Context, roomID string, opts Options) (*Result, error) {
	if opts.ForceRefresh {
		if err := c.store.DeleteMessagesForRoom(ctx, roomID); err != nil {
			return nil, fmt.Errorf("clear room %s: %w", roomID, err)
		}
	}

	var (
		fetched  int
		latestTs int64
		token    string
	)
	for {
		page, err := c.client.ListMessages(ctx, roomID, c.pageSize, token)
		if err != nil {
			return nil, err
		}
		if len(page.Documents) == 0 {
			break
		}

		ids := make([]string, len(page.Documents))
		for i, doc := range page.Documents {
			ids[i] = doc.Name
		}
		existing, err := c.store.ExistingMessageIDs(ctx, ids)
		if err != nil {
			return nil, err
		}

		staged := make([]model.Message, 0, len(page.Documents))
		for _, doc := range page.Documents {
			if existing[doc.Name] {
				continue
			}
			msg := normalize.Normalize(doc)
			if msg.TimestampMs > latestTs {
				latestTs = msg.TimestampMs
			}
			staged = append(staged, msg)
		}

		if len(staged) > 0 {
			if err := c.store.BulkUpsertMessages(ctx, staged); err != nil {
				return nil, err
			}
			fetched += len(staged)
			if security.SyncPagesTotal != nil {
				security.SyncPagesTotal.Inc()
				security.SyncMessagesTotal.Add(float64(len(staged)))
			}
		}
		if opts.Progress != nil {
			opts.Progress(model.SyncProgress{
				FetchedCount: fetched,
				Message:      fmt.Sprintf("fetched %d messages", fetched),
			})
		}

		// A page containing any already-stored document means we have reached
		// the region synced by a previous run.
		if len(staged) < len(page.Documents) {
			break
		}
		token = page.NextPageToken
		if token == "" {
			break
		}
	}

	count, err := c.store.CountMessagesForRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	lastSyncedAt := latestTs
	if lastSyncedAt == 0 {
		if prev, err := c.store.GetRoom(ctx, roomID); err == nil && prev != nil {
			lastSyncedAt = prev.LastSyncedAt
		}
	}
	if lastSyncedAt == 0 {
		lastSyncedAt = time.Now().UnixMilli()
	}

	room, err := c.store.UpsertRoom(ctx, model.Room{
		RoomID:       roomID,
		LastSyncedAt: lastSyncedAt,
		MessageCount: count,
	})
	if err != nil {
		return nil, err
	}

	log.Info("sync complete", "roomID", roomID, "fetched", fetched, "total", count)
	return &Result{Room: room, Fetched: fetched}, nil
}
