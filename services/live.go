package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type liveClient struct {
	service *ScoreboardService
	socket  *websocket.Conn
	gameID  uint
	send    chan []byte
}

// StreamScoreboard sends the game's scoreboard over socket, then a fresh
// copy whenever a message arrives on updates. It returns when the client
// goes away, updates is closed or ctx is done. The caller owns socket.
func (s *ScoreboardService) StreamScoreboard(ctx context.Context, socket *websocket.Conn, gameID uint, updates <-chan *redis.Message) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &liveClient{
		service: s,
		socket:  socket,
		gameID:  gameID,
		send:    make(chan []byte, 16),
	}

	go c.readPump(ctx, cancel)

	if err := c.writeMessage(c.scoreboardMessage(ctx)); err != nil {
		return
	}
	c.writePump(ctx, updates)
}

func (c *liveClient) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	c.socket.SetReadLimit(maxMessageSize)
	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[LIVE] WebSocket read error for game %d: %v", c.gameID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[LIVE] Error unmarshaling message for game %d: %v", c.gameID, err)
			continue
		}

		var reply []byte
		switch msg.Type {
		case "ping":
			reply = encodeMessage("pong", "pong")
		case "request_scoreboard":
			reply = c.scoreboardMessage(ctx)
		default:
			log.Printf("[LIVE] Unknown message type %q for game %d", msg.Type, c.gameID)
			continue
		}

		select {
		case c.send <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (c *liveClient) writePump(ctx context.Context, updates <-chan *redis.Message) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case _, ok := <-updates:
			if !ok {
				return
			}
			if err := c.writeMessage(c.scoreboardMessage(ctx)); err != nil {
				return
			}

		case data := <-c.send:
			if err := c.writeMessage(data); err != nil {
				return
			}

		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *liveClient) writeMessage(data []byte) error {
	c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[LIVE] WebSocket write error for game %d: %v", c.gameID, err)
		return err
	}
	return nil
}

func (c *liveClient) scoreboardMessage(ctx context.Context) []byte {
	board, err := c.service.GetScoreboard(ctx, c.gameID)
	if err != nil {
		return encodeMessage("error", err.Error())
	}
	return encodeMessage("scoreboard", board)
}

func encodeMessage(messageType string, payload interface{}) []byte {
	data, err := json.Marshal(Message{Type: messageType, Payload: payload})
	if err != nil {
		log.Printf("[LIVE] Error marshaling %s message: %v", messageType, err)
		return []byte(`{"type":"error","payload":"internal error"}`)
	}
	return data
}
