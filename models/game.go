package models

// Game is a named scoring session. Names are unique across games.
type Game struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}
