package models

import "time"

// GifEntry - запись каталога гифок, доступная по шорткоду [gif:shortcode]
type GifEntry struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Shortcode   string    `gorm:"size:60;uniqueIndex" json:"shortcode"`
	PreviewURL  string    `gorm:"size:512" json:"preview_url"`
	OriginalURL string    `gorm:"size:512" json:"original_url"`
	UsageCount  int64     `gorm:"default:0" json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func (GifEntry) TableName() string {
	return "gif_entries"
}
