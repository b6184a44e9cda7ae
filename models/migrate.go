package models

import (
	"fmt"

	"gorm.io/gorm"
)

// playerTable and scoreTable describe the same tables as Player and Score
// plus the belongs-to fields gorm needs to emit the foreign keys. They are
// only used for migration.
type playerTable struct {
	Player
	Game *Game `gorm:"foreignKey:GameID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (playerTable) TableName() string { return "players" }

type scoreTable struct {
	Score
	Player *Player `gorm:"foreignKey:PlayerID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (scoreTable) TableName() string { return "scores" }

// AutoMigrate creates or updates the games, players and scores tables.
// Order matters: referenced tables first.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Game{}, &playerTable{}, &scoreTable{}); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}
