// Package sqlite implements the LogStore on a local SQLite file via gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/kagangtuya-star/cclog-plus/internal/config"
	"github.com/kagangtuya-star/cclog-plus/internal/model"
	registrymigrate "github.com/kagangtuya-star/cclog-plus/internal/registry/migrate"
	registrystore "github.com/kagangtuya-star/cclog-plus/internal/registry/store"
	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	registrystore.Register(registrystore.Plugin{
		Name:   "sqlite",
		Loader: load,
	})
	registrymigrate.Register(registrymigrate.Plugin{
		Order:    0,
		Migrator: &migrator{},
	})
}

type logStore struct {
	db *gorm.DB
}

func load(ctx context.Context) (registrystore.LogStore, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.DBPath == "" {
		return nil, fmt.Errorf("sqlite store: db path is required")
	}
	db, err := open(cfg.DBPath, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		return nil, err
	}
	return &logStore{db: db}, nil
}

func open(path string, maxOpen, maxIdle int) (*gorm.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	return db, nil
}

// mapError converts sqlite driver errors into the store error taxonomy.
func mapError(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		if serr.Code == sqlite3.ErrConstraint {
			return &registrystore.ConflictError{Message: serr.Error()}
		}
	}
	return err
}

func (s *logStore) UpsertRoom(ctx context.Context, room model.Room) (*model.Room, error) {
	var existing model.Room
	err := s.db.WithContext(ctx).First(&existing, "room_id = ?", room.RoomID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if room.Title == "" {
			room.Title = room.RoomID
		}
		if err := s.db.WithContext(ctx).Create(&room).Error; err != nil {
			return nil, mapError(err)
		}
		return &room, nil
	case err != nil:
		return nil, err
	}

	// Merge: keep the stored title/note when the incoming value is empty so a
	// re-sync never clobbers user edits.
	if room.Title == "" || (room.Title == room.RoomID && existing.Title != "") {
		room.Title = existing.Title
	}
	if room.Note == "" {
		room.Note = existing.Note
	}
	if err := s.db.WithContext(ctx).Save(&room).Error; err != nil {
		return nil, mapError(err)
	}
	return &room, nil
}

func (s *logStore) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).First(&room, "room_id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &registrystore.NotFoundError{Resource: "room", ID: roomID}
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *logStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	err := s.db.WithContext(ctx).Order("last_synced_at DESC").Find(&rooms).Error
	return rooms, err
}

func (s *logStore) DeleteRoom(ctx context.Context, roomID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		res := tx.Where("room_id = ?", roomID).Delete(&model.Room{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &registrystore.NotFoundError{Resource: "room", ID: roomID}
		}
		return nil
	})
}

func (s *logStore) SetRoomNote(ctx context.Context, roomID string, note string) (*model.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room.Note = note
	if err := s.db.WithContext(ctx).Save(room).Error; err != nil {
		return nil, mapError(err)
	}
	return room, nil
}

const insertBatchSize = 500

func (s *logStore) BulkUpsertMessages(ctx context.Context, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(messages, insertBatchSize).Error
	return mapError(err)
}

func (s *logStore) ExistingMessageIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}
	var found []string
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

func (s *logStore) DeleteMessagesForRoom(ctx context.Context, roomID string) error {
	return s.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&model.Message{}).Error
}

func (s *logStore) CountMessagesForRoom(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

func (s *logStore) MessagesInRange(ctx context.Context, roomID string, start, end *int64) ([]model.Message, error) {
	q := s.db.WithContext(ctx).Where("room_id = ?", roomID)
	if start != nil {
		q = q.Where("timestamp_ms >= ?", *start)
	}
	if end != nil {
		q = q.Where("timestamp_ms <= ?", *end)
	}
	var messages []model.Message
	err := q.Order("timestamp_ms ASC").Find(&messages).Error
	return messages, err
}

func (s *logStore) RoomFacets(ctx context.Context, roomID string) (*registrystore.RoomFacets, error) {
	facets := &registrystore.RoomFacets{}
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("room_id = ?", roomID).
		Distinct().Order("channel_id ASC").
		Pluck("channel_id", &facets.Channels).Error
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(&model.Message{}).
		Where("room_id = ?", roomID).
		Distinct().Order("nickname ASC").
		Pluck("nickname", &facets.Roles).Error
	if err != nil {
		return nil, err
	}
	return facets, nil
}

func (s *logStore) ReplaceRoom(ctx context.Context, room model.Room, messages []model.Message) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", room.RoomID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if len(messages) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
				CreateInBatches(messages, insertBatchSize).Error; err != nil {
				return err
			}
		}
		return tx.Save(&room).Error
	})
	return mapError(err)
}

func (s *logStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ registrystore.LogStore = (*logStore)(nil)

// migrator runs the gorm AutoMigrate for the sqlite schema.
type migrator struct{}

func (m *migrator) Name() string { return "sqlite" }

func (m *migrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg == nil || !cfg.DatastoreMigrateAtStart {
		return nil
	}
	db, err := open(cfg.DBPath, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	log.Info("Migrating sqlite schema", "path", cfg.DBPath)
	return db.WithContext(ctx).AutoMigrate(&model.Room{}, &model.Message{})
}
