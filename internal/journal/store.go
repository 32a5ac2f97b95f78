package journal

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type RoomRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"size:16;index"`
	GameType  string `gorm:"size:64"`
	CreatedAt time.Time
}

type RoundRecord struct {
	ID        uint   `gorm:"primaryKey"`
	RoomCode  string `gorm:"size:16;index"`
	GameType  string `gorm:"size:64"`
	Round     int
	Players   datatypes.JSON
	CreatedAt time.Time
}

// Store writes journal records to postgres through gorm.
type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.AutoMigrate(&RoomRecord{}, &RoundRecord{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return New(db), nil
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) RoomOpened(ctx context.Context, code, gameType string) error {
	rec := RoomRecord{Code: code, GameType: gameType, CreatedAt: time.Now()}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *Store) RoundSettled(ctx context.Context, entry RoundEntry) error {
	rec := newRoundRecord(entry)
	return s.db.WithContext(ctx).Create(&rec).Error
}

func newRoundRecord(entry RoundEntry) RoundRecord {
	players := datatypes.JSON(entry.Players)
	if len(players) == 0 {
		players = datatypes.JSON("[]")
	}
	return RoundRecord{
		RoomCode:  entry.RoomCode,
		GameType:  entry.GameType,
		Round:     entry.Round,
		Players:   players,
		CreatedAt: time.Now(),
	}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
