package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"scoretracker/services"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrGameNotFound), errors.Is(err, services.ErrPlayerNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrGameExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		log.Printf("Unhandled error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

// parseGameID reads the game_id path parameter. Non-numeric input is a bad
// request; a number no game can have is answered as an unknown game.
func parseGameID(c *gin.Context) (uint, bool) {
	gameID, err := strconv.ParseInt(c.Param("game_id"), 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid game ID"})
		return 0, false
	}
	id, ok := recordID(gameID)
	if err != nil || !ok {
		respondError(c, services.ErrGameNotFound)
		return 0, false
	}
	return id, true
}

// recordID converts a client supplied id. Rows are numbered from 1, so
// anything lower cannot exist.
func recordID(id int64) (uint, bool) {
	if id <= 0 || uint64(id) > uint64(^uint(0)) {
		return 0, false
	}
	return uint(id), true
}
