// Package http holds the REST handlers of the relay. Routing and middleware
// live in adapters/http.
package http

import (
	"net/http"

	"github.com/dkeye/Rendezvous/internal/app"
	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const lastSessionKey = "last_session_id"

type HealthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"activeSessions"`
}

type SessionResponse struct {
	SessionID string `json:"sessionId"`
}

type RoomsResponse struct {
	Rooms []core.RoomInfo `json:"rooms"`
}

type ICEServersResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Handlers struct {
	Lifecycle  *app.Lifecycle
	ICEServers []webrtc.ICEServer
}

func NewHandlers(lc *app.Lifecycle, ice []webrtc.ICEServer) *Handlers {
	if ice == nil {
		ice = []webrtc.ICEServer{}
	}
	return &Handlers{Lifecycle: lc, ICEServers: ice}
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:         "signaling server running",
		ActiveSessions: h.Lifecycle.ActiveSessions(),
	})
}

// CreateSession mints an id for the caller to share. No room exists until
// someone joins with it.
func (h *Handlers) CreateSession(c *gin.Context) {
	id := h.Lifecycle.NewSessionID()
	s := sessions.Default(c)
	s.Set(lastSessionKey, id)
	if err := s.Save(); err != nil {
		log.Warn().Err(err).Str("module", "transport.http").Msg("save cookie session")
	}
	log.Info().Str("module", "transport.http").Str("session_id", id).Str("client_token", c.GetString("client_token")).Msg("session created")
	c.JSON(http.StatusOK, SessionResponse{SessionID: id})
}

func (h *Handlers) LastSession(c *gin.Context) {
	id, ok := sessions.Default(c).Get(lastSessionKey).(string)
	if !ok || id == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no session created yet"})
		return
	}
	c.JSON(http.StatusOK, SessionResponse{SessionID: id})
}

func (h *Handlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, RoomsResponse{Rooms: h.Lifecycle.Rooms.List()})
}

func (h *Handlers) GetRoom(c *gin.Context) {
	id, err := domain.NewRoomID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	room, ok := h.Lifecycle.Rooms.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: domain.ErrRoomNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, room.Info())
}

func (h *Handlers) ListICEServers(c *gin.Context) {
	c.JSON(http.StatusOK, ICEServersResponse{ICEServers: h.ICEServers})
}
