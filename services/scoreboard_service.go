package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"scoretracker/models"

	"gorm.io/gorm"
)

type ScoreboardService struct {
	db    *gorm.DB
	cache ScoreboardCache
	feed  ScoreboardFeed

	// Games whose cache version could not be bumped after a write. Their
	// cached boards are bypassed until a bump succeeds.
	staleMu sync.Mutex
	stale   map[uint]struct{}
}

// NewScoreboardService builds the service. cache and feed may be nil, in
// which case every read goes to the database and no updates are published.
func NewScoreboardService(db *gorm.DB, cache ScoreboardCache, feed ScoreboardFeed) *ScoreboardService {
	return &ScoreboardService{
		db:    db,
		cache: cache,
		feed:  feed,
		stale: make(map[uint]struct{}),
	}
}

type CreateGameRequest struct {
	Name string `json:"name" binding:"required"`
}

// Ids in requests are signed so that a negative id reads as an unknown one
// rather than a malformed body.
type AddPlayerRequest struct {
	Name   string `json:"name" binding:"required"`
	GameID *int64 `json:"game_id" binding:"required"`
}

// Round and Score are pointers so that 0 is accepted while a missing field
// is still rejected.
type AddScoreRequest struct {
	PlayerID *int64 `json:"player_id" binding:"required"`
	Round    *int   `json:"round" binding:"required"`
	Score    *int   `json:"score" binding:"required"`
}

type RoundScore struct {
	Round int `json:"round"`
	Score int `json:"score"`
}

type PlayerSummary struct {
	PlayerID   uint         `json:"player_id"`
	Name       string       `json:"name"`
	TotalScore int          `json:"total_score"`
	Scores     []RoundScore `json:"scores"`
}

// CreateGame inserts a game. Name uniqueness is left to the storage layer;
// a duplicate name returns ErrGameExists wrapping the driver error.
func (s *ScoreboardService) CreateGame(ctx context.Context, name string) (*models.Game, error) {
	game := models.Game{Name: name}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&game).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %w", ErrGameExists, err)
		}
		return nil, err
	}

	return &game, nil
}

func (s *ScoreboardService) GetGame(ctx context.Context, gameID uint) (*models.Game, error) {
	return findGame(s.db.WithContext(ctx), gameID)
}

func (s *ScoreboardService) AddPlayer(ctx context.Context, name string, gameID uint) (*models.Player, error) {
	player := models.Player{Name: name, GameID: gameID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findGame(tx, gameID); err != nil {
			return err
		}
		return tx.Create(&player).Error
	})
	if err != nil {
		return nil, err
	}

	s.scoreboardChanged(ctx, gameID)
	return &player, nil
}

func (s *ScoreboardService) AddScore(ctx context.Context, playerID uint, round, score int) (*models.Score, error) {
	entry := models.Score{PlayerID: playerID, Round: round, Score: score}
	var gameID uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		player, err := findPlayer(tx, playerID)
		if err != nil {
			return err
		}
		gameID = player.GameID
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	s.scoreboardChanged(ctx, gameID)
	return &entry, nil
}

// GetScoreboard returns one summary per player in the order players joined,
// each with its scores in the order they were recorded.
func (s *ScoreboardService) GetScoreboard(ctx context.Context, gameID uint) ([]PlayerSummary, error) {
	var version int64
	useCache := s.cache != nil && s.cacheUsable(ctx, gameID)
	if useCache {
		board, v, hit, err := s.cache.Lookup(ctx, gameID)
		switch {
		case err != nil:
			log.Printf("[SCOREBOARD] Cache lookup failed for game %d: %v", gameID, err)
			useCache = false
		case hit:
			return board, nil
		}
		version = v
	}

	var board []PlayerSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findGame(tx, gameID); err != nil {
			return err
		}

		var players []models.Player
		if err := tx.Where("game_id = ?", gameID).Order("id").Find(&players).Error; err != nil {
			return err
		}

		board = make([]PlayerSummary, 0, len(players))
		if len(players) == 0 {
			return nil
		}

		playerIDs := make([]uint, len(players))
		for i, player := range players {
			playerIDs[i] = player.ID
		}

		var scores []models.Score
		if err := tx.Where("player_id IN ?", playerIDs).Order("id").Find(&scores).Error; err != nil {
			return err
		}

		byPlayer := make(map[uint][]RoundScore, len(players))
		for _, sc := range scores {
			byPlayer[sc.PlayerID] = append(byPlayer[sc.PlayerID], RoundScore{Round: sc.Round, Score: sc.Score})
		}

		for _, player := range players {
			rounds := byPlayer[player.ID]
			if rounds == nil {
				rounds = []RoundScore{}
			}
			total := 0
			for _, r := range rounds {
				total += r.Score
			}
			board = append(board, PlayerSummary{
				PlayerID:   player.ID,
				Name:       player.Name,
				TotalScore: total,
				Scores:     rounds,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if useCache {
		if err := s.cache.Store(ctx, gameID, version, board); err != nil {
			log.Printf("[SCOREBOARD] Failed to cache scoreboard for game %d: %v", gameID, err)
		}
	}

	return board, nil
}

// scoreboardChanged drops cached scoreboards for the game and notifies live
// subscribers. Failures are logged; the write has already committed.
func (s *ScoreboardService) scoreboardChanged(ctx context.Context, gameID uint) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, gameID); err != nil {
			log.Printf("[SCOREBOARD] Failed to invalidate cache for game %d, bypassing it: %v", gameID, err)
			s.markStale(gameID)
		}
	}
	if s.feed != nil {
		if err := s.feed.Publish(ctx, gameID); err != nil {
			log.Printf("[SCOREBOARD] Failed to publish update for game %d: %v", gameID, err)
		}
	}
}

func (s *ScoreboardService) markStale(gameID uint) {
	s.staleMu.Lock()
	s.stale[gameID] = struct{}{}
	s.staleMu.Unlock()
}

// cacheUsable reports whether cached boards for the game may be served. A
// game marked stale gets its version bumped again first.
func (s *ScoreboardService) cacheUsable(ctx context.Context, gameID uint) bool {
	s.staleMu.Lock()
	defer s.staleMu.Unlock()

	if _, ok := s.stale[gameID]; !ok {
		return true
	}
	if err := s.cache.Invalidate(ctx, gameID); err != nil {
		return false
	}
	delete(s.stale, gameID)
	return true
}

func findGame(tx *gorm.DB, gameID uint) (*models.Game, error) {
	var game models.Game
	if err := tx.Where("id = ?", gameID).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return &game, nil
}

func findPlayer(tx *gorm.DB, playerID uint) (*models.Player, error) {
	var player models.Player
	if err := tx.Where("id = ?", playerID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return &player, nil
}
