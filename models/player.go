package models

// Player belongs to exactly one game.
type Player struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Name   string `json:"name" gorm:"not null"`
	GameID uint   `json:"game_id" gorm:"not null;index"`
}
