// Package docs holds the OpenAPI description served at /swagger/index.html.
// Regenerate with `swag init` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/games": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["games"],
                "summary": "Create a game",
                "parameters": [
                    {
                        "description": "Game to create",
                        "name": "game",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/services.CreateGameRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Game"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/games/{game_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["games"],
                "summary": "Get a game",
                "parameters": [
                    {"type": "integer", "description": "Game ID", "name": "game_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Game"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/games/{game_id}/scoreboard": {
            "get": {
                "description": "One entry per player in join order, with the total and the per-round breakdown in recording order.",
                "produces": ["application/json"],
                "tags": ["games"],
                "summary": "Get a game's scoreboard",
                "parameters": [
                    {"type": "integer", "description": "Game ID", "name": "game_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/services.PlayerSummary"}}
                    },
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/players": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["players"],
                "summary": "Add a player to a game",
                "parameters": [
                    {
                        "description": "Player to add",
                        "name": "player",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/services.AddPlayerRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Player"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/scores": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["scores"],
                "summary": "Record a player's score for a round",
                "parameters": [
                    {
                        "description": "Score to record",
                        "name": "score",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/services.AddScoreRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Score"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/ws/games/{game_id}/scoreboard": {
            "get": {
                "description": "Sends {\"type\":\"scoreboard\",\"payload\":[...]} on connect and after every player or score added to the game.",
                "tags": ["games"],
                "summary": "Live scoreboard over WebSocket",
                "parameters": [
                    {"type": "integer", "description": "Game ID", "name": "game_id", "in": "path", "required": true}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness and dependency status",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "models.Game": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"}
            }
        },
        "models.Player": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "game_id": {"type": "integer"}
            }
        },
        "models.Score": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "player_id": {"type": "integer"},
                "round": {"type": "integer"},
                "score": {"type": "integer"}
            }
        },
        "services.CreateGameRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {"name": {"type": "string"}}
        },
        "services.AddPlayerRequest": {
            "type": "object",
            "required": ["game_id", "name"],
            "properties": {
                "game_id": {"type": "integer"},
                "name": {"type": "string"}
            }
        },
        "services.AddScoreRequest": {
            "type": "object",
            "required": ["player_id", "round", "score"],
            "properties": {
                "player_id": {"type": "integer"},
                "round": {"type": "integer"},
                "score": {"type": "integer"}
            }
        },
        "services.RoundScore": {
            "type": "object",
            "properties": {
                "round": {"type": "integer"},
                "score": {"type": "integer"}
            }
        },
        "services.PlayerSummary": {
            "type": "object",
            "properties": {
                "player_id": {"type": "integer"},
                "name": {"type": "string"},
                "total_score": {"type": "integer"},
                "scores": {"type": "array", "items": {"$ref": "#/definitions/services.RoundScore"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Scoretracker API",
	Description:      "Games, players, per-round scores and scoreboards.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
