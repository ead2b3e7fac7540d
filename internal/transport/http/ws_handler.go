package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/domain"
)

// WSHandler upgrades game connections and feeds client events into the
// coordinator.
type WSHandler struct {
	coordinator *app.Coordinator
	hub         *Hub
	upgrader    websocket.Upgrader
}

func NewWSHandler(coordinator *app.Coordinator, hub *Hub) *WSHandler {
	return &WSHandler{
		coordinator: coordinator,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS attaches a client to a session. Players are anonymous; the room
// code gate happened at join time, so the socket only needs the session ID,
// role, and (for players) the team ID.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(r.URL.Query().Get("sessionId"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid sessionId", http.StatusBadRequest)
		return
	}
	role := Role(r.URL.Query().Get("role"))
	if role != RoleFacilitator && role != RolePlayer {
		http.Error(w, "role must be facilitator or player", http.StatusBadRequest)
		return
	}
	var teamID int64
	if raw := r.URL.Query().Get("teamId"); raw != "" {
		if teamID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			http.Error(w, "invalid teamId", http.StatusBadRequest)
			return
		}
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	conn := h.hub.Register(ws, sessionID, role, teamID)
	defer h.hub.Unregister(conn.ID())

	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "ping":
			conn.Send(domain.Event{Type: domain.EventPong, Data: struct{}{}})
		case "dice_rolled":
			h.coordinator.DiceRolled(sessionID, inbound.Data)
		case "request_leaderboard":
			standings, err := h.coordinator.Standings(r.Context(), sessionID)
			if err != nil {
				conn.Send(domain.Event{Type: domain.EventError, Data: errorPayload{Message: err.Error()}})
				continue
			}
			conn.Send(domain.Event{Type: domain.EventLeaderboardUpdate, Data: domain.LeaderboardData{Leaderboard: standings}})
		case "game_ended":
			// Facilitator-console shortcut: relay the closing payload as-is.
			h.hub.Broadcast(sessionID, domain.Event{Type: domain.EventGameEnded, Data: domain.RawData(inbound.Data)})
		default:
			conn.Send(domain.Event{Type: domain.EventError, Data: errorPayload{Message: "unsupported message type"}})
		}
	}
}
