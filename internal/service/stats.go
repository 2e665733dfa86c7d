// Package service holds background maintenance loops.
package service

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/store"
)

// StatsRefresher periodically reconciles each room's stored message count with
// the actual row count, correcting drift left by interrupted syncs.
type StatsRefresher struct {
	store    store.LogStore
	interval time.Duration
}

// NewStatsRefresher builds a refresher. A non-positive interval disables it.
func NewStatsRefresher(s store.LogStore, interval time.Duration) *StatsRefresher {
	return &StatsRefresher{store: s, interval: interval}
}

// Start runs the refresh loop until ctx is canceled. It returns immediately
// when the refresher is disabled.
func (r *StatsRefresher) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RefreshOnce(ctx); err != nil {
				log.Warn("stats refresh failed", "error", err)
			}
		}
	}
}

// RefreshOnce reconciles every room once.
func (r *StatsRefresher) RefreshOnce(ctx context.Context) error {
	rooms, err := r.store.ListRooms(ctx)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		count, err := r.store.CountMessagesForRoom(ctx, room.RoomID)
		if err != nil {
			return err
		}
		if count == room.MessageCount {
			continue
		}
		log.Debug("correcting room message count",
			"roomID", room.RoomID, "stored", room.MessageCount, "actual", count)
		_, err = r.store.UpsertRoom(ctx, model.Room{
			RoomID:       room.RoomID,
			LastSyncedAt: room.LastSyncedAt,
			MessageCount: count,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
