// Package journal records which posts were delivered where.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fiffu/stobot/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Delivery struct {
	gorm.Model
	ChannelID   uint64 `gorm:"index:idx_channel_delivered"`
	ArticleID   uint64 `gorm:"index"`
	Title       string
	DeliveredAt time.Time `gorm:"index:idx_channel_delivered"`
}

func (d *Delivery) BeforeCreate(tx *gorm.DB) error {
	if d.DeliveredAt.IsZero() {
		d.DeliveredAt = time.Now().UTC()
	}
	return nil
}

type Journal struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(db *gorm.DB, log *zap.Logger) (*Journal, error) {
	if err := db.AutoMigrate(&Delivery{}); err != nil {
		return nil, fmt.Errorf("%w: migrating deliveries: %w", models.ErrPersistence, err)
	}
	return &Journal{db: db, log: log}, nil
}

func (j *Journal) Record(ctx context.Context, channelID uint64, post models.Post, at time.Time) error {
	row := &Delivery{
		ChannelID:   channelID,
		ArticleID:   uint64(post.ArticleID),
		Title:       post.Title,
		DeliveredAt: at.UTC(),
	}
	if err := j.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("%w: recording delivery: %w", models.ErrPersistence, err)
	}
	return nil
}

// Recent lists the latest deliveries across all channels, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	var rows []Delivery
	err := j.db.WithContext(ctx).
		Order("delivered_at desc").
		Order("id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: listing deliveries: %w", models.ErrPersistence, err)
	}
	return rows, nil
}

// LastFor returns the newest delivery to channelID, or nil if there is none.
func (j *Journal) LastFor(ctx context.Context, channelID uint64) (*Delivery, error) {
	var row Delivery
	err := j.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("delivered_at desc").
		Order("id desc").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading last delivery: %w", models.ErrPersistence, err)
	}
	return &row, nil
}
