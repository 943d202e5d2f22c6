package models

import "time"

// CartState is the durable copy of one shopper's serialized cart.
type CartState struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Payload   []byte    `gorm:"column:payload;not null"`
	Version   int       `gorm:"column:version;not null;default:1"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartState) TableName() string { return "cart_states" }
