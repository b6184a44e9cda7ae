package services

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrGameNotFound   = errors.New("Game not found")
	ErrPlayerNotFound = errors.New("Player not found")
	ErrGameExists     = errors.New("game name already exists")
)

// isUniqueViolation reports whether err comes from a unique constraint,
// whichever driver produced it.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
