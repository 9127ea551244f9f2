package model

import "time"

// Category is static reference data; Name doubles as the prompt selector key.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Icon        string    `gorm:"size:64" json:"icon"`
	Color       string    `gorm:"size:16" json:"color"`
	CreatedAt   time.Time `json:"created_at"`
}
