package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"scoretracker/config"
	"scoretracker/handlers"
	"scoretracker/models"
	"scoretracker/routes"
	"scoretracker/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := config.InitDB(&config.Config{
		DBDriver: config.DriverSQLite,
		DBPath:   fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// newTestRouter wires the full API over an in-memory database. redisClient
// may be nil.
func newTestRouter(t *testing.T, redisClient *redis.Client) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	var (
		cache services.ScoreboardCache
		feed  services.ScoreboardFeed
	)
	if redisClient != nil {
		store := services.NewRedisScoreboardStore(redisClient, 0)
		cache = store
		feed = store
	}

	svc := services.NewScoreboardService(db, cache, feed)
	router := gin.New()
	routes.SetupRoutes(router,
		handlers.NewScoreboardHandler(svc),
		handlers.NewLiveHandler(svc, feed, []string{"*"}),
		handlers.NewHealthHandler(db, redisClient),
	)
	return router
}

func doJSON(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTriviaNightScenario(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doJSON(router, http.MethodPost, "/games", `{"name":"Trivia Night"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":1,"name":"Trivia Night"}`, w.Body.String())

	w = doJSON(router, http.MethodPost, "/players", `{"name":"Alice","game_id":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":1,"name":"Alice","game_id":1}`, w.Body.String())

	w = doJSON(router, http.MethodPost, "/players", `{"name":"Bob","game_id":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":2,"name":"Bob","game_id":1}`, w.Body.String())

	w = doJSON(router, http.MethodPost, "/scores", `{"player_id":1,"round":1,"score":10}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":1,"player_id":1,"round":1,"score":10}`, w.Body.String())

	w = doJSON(router, http.MethodPost, "/scores", `{"player_id":2,"round":1,"score":7}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodGet, "/games/1/scoreboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"player_id":1,"name":"Alice","total_score":10,"scores":[{"round":1,"score":10}]},
		{"player_id":2,"name":"Bob","total_score":7,"scores":[{"round":1,"score":7}]}
	]`, w.Body.String())

	again := doJSON(router, http.MethodGet, "/games/1/scoreboard", "")
	assert.Equal(t, w.Body.String(), again.Body.String())
}

func TestCreateGameConflict(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doJSON(router, http.MethodPost, "/games", `{"name":"Uno"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/games", `{"name":"Uno"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "game name already exists")

	w = doJSON(router, http.MethodPost, "/games", `{"name":"Uno Flip"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestNotFound(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		message string
	}{
		{"player for unknown game", http.MethodPost, "/players", `{"name":"Alice","game_id":5}`, "Game not found"},
		{"score for unknown player", http.MethodPost, "/scores", `{"player_id":5,"round":1,"score":1}`, "Player not found"},
		{"scoreboard for unknown game", http.MethodGet, "/games/5/scoreboard", "", "Game not found"},
		{"unknown game", http.MethodGet, "/games/5", "", "Game not found"},
		{"player for negative game", http.MethodPost, "/players", `{"name":"Alice","game_id":-1}`, "Game not found"},
		{"player for game zero", http.MethodPost, "/players", `{"name":"Alice","game_id":0}`, "Game not found"},
		{"score for negative player", http.MethodPost, "/scores", `{"player_id":-1,"round":1,"score":1}`, "Player not found"},
		{"score for large player id", http.MethodPost, "/scores", `{"player_id":5000000000,"round":1,"score":1}`, "Player not found"},
		{"scoreboard for negative game", http.MethodGet, "/games/-1/scoreboard", "", "Game not found"},
		{"scoreboard for large game id", http.MethodGet, "/games/5000000000/scoreboard", "", "Game not found"},
		{"scoreboard for game id past int64", http.MethodGet, "/games/99999999999999999999/scoreboard", "", "Game not found"},
		{"negative game", http.MethodGet, "/games/-7", "", "Game not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.message), w.Body.String())
		})
	}
}

func TestValidation(t *testing.T) {
	router := newTestRouter(t, nil)
	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/games", `{"name":"Darts"}`).Code)
	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/players", `{"name":"Alice","game_id":1}`).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"game without name", http.MethodPost, "/games", `{}`, http.StatusBadRequest},
		{"game with empty name", http.MethodPost, "/games", `{"name":""}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/games", `{"name":`, http.StatusBadRequest},
		{"player without game", http.MethodPost, "/players", `{"name":"Bob"}`, http.StatusBadRequest},
		{"player with string game id", http.MethodPost, "/players", `{"name":"Bob","game_id":"one"}`, http.StatusBadRequest},
		{"score without round", http.MethodPost, "/scores", `{"player_id":1,"score":3}`, http.StatusBadRequest},
		{"score without score", http.MethodPost, "/scores", `{"player_id":1,"round":3}`, http.StatusBadRequest},
		{"score of zero in round zero", http.MethodPost, "/scores", `{"player_id":1,"round":0,"score":0}`, http.StatusCreated},
		{"negative score", http.MethodPost, "/scores", `{"player_id":1,"round":2,"score":-4}`, http.StatusCreated},
		{"non numeric game id", http.MethodGet, "/games/abc/scoreboard", "", http.StatusBadRequest},
		{"fractional game id", http.MethodGet, "/games/1.5/scoreboard", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w := doJSON(router, http.MethodGet, "/games/1/scoreboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"player_id":1,"name":"Alice","total_score":-4,"scores":[{"round":0,"score":0},{"round":2,"score":-4}]}]`, w.Body.String())
}

func TestTrailingSlashRedirects(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doJSON(router, http.MethodPost, "/games/", `{"name":"Slash"}`)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/games", w.Header().Get("Location"))
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, nil)

	w := doJSON(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok","redis":"disabled"}`, w.Body.String())
}
