package models

import "time"

// Deal is immutable from the engine's point of view; allocations reference it.
type Deal struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Sector    string    `gorm:"size:64" json:"sector"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Deal) TableName() string {
	return "deal"
}
