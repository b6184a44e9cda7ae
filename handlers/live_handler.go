package handlers

import (
	"log"
	"net/http"
	"slices"

	"scoretracker/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type LiveHandler struct {
	service  *services.ScoreboardService
	feed     services.ScoreboardFeed
	upgrader websocket.Upgrader
}

// NewLiveHandler builds the live scoreboard handler. feed may be nil, in
// which case the endpoint answers 503.
func NewLiveHandler(service *services.ScoreboardService, feed services.ScoreboardFeed, allowedOrigins []string) *LiveHandler {
	allowAll := slices.Contains(allowedOrigins, "*")
	return &LiveHandler{
		service: service,
		feed:    feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// StreamScoreboard godoc
// @Summary      Live scoreboard over WebSocket
// @Description  Sends {"type":"scoreboard","payload":[...]} on connect and after every player or score added to the game.
// @Tags         games
// @Param        game_id  path  int  true  "Game ID"
// @Success      101
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ws/games/{game_id}/scoreboard [get]
func (h *LiveHandler) StreamScoreboard(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Live scoreboard unavailable"})
		return
	}

	gameID, ok := parseGameID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.service.GetGame(ctx, gameID); err != nil {
		respondError(c, err)
		return
	}

	// Subscribe before upgrading so no update between the first scoreboard
	// and the subscription is lost.
	sub := h.feed.Subscribe(ctx, gameID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		log.Printf("[LIVE] Subscribe failed for game %d: %v", gameID, err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Live scoreboard unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[LIVE] WebSocket upgrade failed for game %d: %v", gameID, err)
		return
	}
	defer conn.Close()

	log.Printf("[LIVE] Client connected to game %d", gameID)
	h.service.StreamScoreboard(ctx, conn, gameID, sub.Channel())
	log.Printf("[LIVE] Client disconnected from game %d", gameID)
}
