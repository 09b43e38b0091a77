package model

import "time"

// Blob is one JSON document stored under a logical key.
type Blob struct {
	Key       string `gorm:"column:blob_key;primaryKey"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}
