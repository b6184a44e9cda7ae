package routes

import (
	"scoretracker/handlers"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRoutes registers the API. writeMiddleware runs only on the routes
// that insert rows.
func SetupRoutes(
	router *gin.Engine,
	scoreboardHandler *handlers.ScoreboardHandler,
	liveHandler *handlers.LiveHandler,
	healthHandler *handlers.HealthHandler,
	writeMiddleware ...gin.HandlerFunc,
) {
	writes := router.Group("/", writeMiddleware...)
	{
		writes.POST("/games", scoreboardHandler.CreateGame)
		writes.POST("/players", scoreboardHandler.AddPlayer)
		writes.POST("/scores", scoreboardHandler.AddScore)
	}

	games := router.Group("/games")
	{
		games.GET("/:game_id", scoreboardHandler.GetGame)
		games.GET("/:game_id/scoreboard", scoreboardHandler.GetScoreboard)
	}

	router.GET("/ws/games/:game_id/scoreboard", liveHandler.StreamScoreboard)

	router.GET("/health", healthHandler.Health)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
