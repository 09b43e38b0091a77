package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"multi-timer/internal/model"
)

// BlobRepository is a key/value store of JSON documents.
type BlobRepository struct {
	db *gorm.DB
}

func NewBlobRepository(db *gorm.DB) *BlobRepository {
	return &BlobRepository{db: db}
}

// Load returns the document stored under key. A missing key is not an error:
// ok is false and blob is nil.
func (r *BlobRepository) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var blob model.Blob
	err := r.db.WithContext(ctx).Where("blob_key = ?", key).First(&blob).Error
	switch {
	case err == nil:
		return []byte(blob.Value), true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("load blob %q: %w", key, err)
	}
}

// Save replaces the document stored under key.
func (r *BlobRepository) Save(ctx context.Context, key string, value []byte) error {
	blob := model.Blob{Key: key, Value: string(value)}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob).Error
	if err != nil {
		return fmt.Errorf("save blob %q: %w", key, err)
	}
	return nil
}
