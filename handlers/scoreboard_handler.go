package handlers

import (
	"net/http"

	"scoretracker/services"

	"github.com/gin-gonic/gin"
)

type ScoreboardHandler struct {
	service *services.ScoreboardService
}

func NewScoreboardHandler(service *services.ScoreboardService) *ScoreboardHandler {
	return &ScoreboardHandler{
		service: service,
	}
}

// CreateGame godoc
// @Summary      Create a game
// @Tags         games
// @Accept       json
// @Produce      json
// @Param        game  body      services.CreateGameRequest  true  "Game to create"
// @Success      201   {object}  models.Game
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /games [post]
func (h *ScoreboardHandler) CreateGame(c *gin.Context) {
	var req services.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	game, err := h.service.CreateGame(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, game)
}

// GetGame godoc
// @Summary      Get a game
// @Tags         games
// @Produce      json
// @Param        game_id  path      int  true  "Game ID"
// @Success      200      {object}  models.Game
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /games/{game_id} [get]
func (h *ScoreboardHandler) GetGame(c *gin.Context) {
	gameID, ok := parseGameID(c)
	if !ok {
		return
	}

	game, err := h.service.GetGame(c.Request.Context(), gameID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, game)
}

// AddPlayer godoc
// @Summary      Add a player to a game
// @Tags         players
// @Accept       json
// @Produce      json
// @Param        player  body      services.AddPlayerRequest  true  "Player to add"
// @Success      201     {object}  models.Player
// @Failure      400     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /players [post]
func (h *ScoreboardHandler) AddPlayer(c *gin.Context) {
	var req services.AddPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	gameID, ok := recordID(*req.GameID)
	if !ok {
		respondError(c, services.ErrGameNotFound)
		return
	}

	player, err := h.service.AddPlayer(c.Request.Context(), req.Name, gameID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, player)
}

// AddScore godoc
// @Summary      Record a player's score for a round
// @Tags         scores
// @Accept       json
// @Produce      json
// @Param        score  body      services.AddScoreRequest  true  "Score to record"
// @Success      201    {object}  models.Score
// @Failure      400    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Router       /scores [post]
func (h *ScoreboardHandler) AddScore(c *gin.Context) {
	var req services.AddScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	playerID, ok := recordID(*req.PlayerID)
	if !ok {
		respondError(c, services.ErrPlayerNotFound)
		return
	}

	score, err := h.service.AddScore(c.Request.Context(), playerID, *req.Round, *req.Score)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, score)
}

// GetScoreboard godoc
// @Summary      Get a game's scoreboard
// @Description  One entry per player in join order, with the total and the per-round breakdown in recording order.
// @Tags         games
// @Produce      json
// @Param        game_id  path      int  true  "Game ID"
// @Success      200      {array}   services.PlayerSummary
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /games/{game_id}/scoreboard [get]
func (h *ScoreboardHandler) GetScoreboard(c *gin.Context) {
	gameID, ok := parseGameID(c)
	if !ok {
		return
	}

	board, err := h.service.GetScoreboard(c.Request.Context(), gameID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, board)
}
