package models

// Score is one round's point value for one player. Several scores for the
// same (player, round) pair are allowed.
type Score struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	PlayerID uint `json:"player_id" gorm:"not null;index"`
	Round    int  `json:"round" gorm:"not null"`
	Score    int  `json:"score" gorm:"not null"`
}
