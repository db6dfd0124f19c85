package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/k1zuko/crazyrace-sub000/internal/models"
	"github.com/k1zuko/crazyrace-sub000/internal/services"
	"github.com/k1zuko/crazyrace-sub000/internal/ws"
)

type SessionHandler struct {
	sessionService    *services.SessionService
	rankService       *services.RankService
	hub               *ws.Hub
	defaultMaxPlayers int
}

func NewSessionHandler(sessionService *services.SessionService, rankService *services.RankService, hub *ws.Hub, defaultMaxPlayers int) *SessionHandler {
	return &SessionHandler{
		sessionService:    sessionService,
		rankService:       rankService,
		hub:               hub,
		defaultMaxPlayers: defaultMaxPlayers,
	}
}

type CreateSessionRequest struct {
	QuizID           uint   `json:"quiz_id" binding:"required"`
	QuestionLimit    int    `json:"question_limit"`
	TotalTimeMinutes int    `json:"total_time_minutes"`
	Difficulty       string `json:"difficulty"`
	MaxPlayers       int    `json:"max_players"`
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	hostID := c.GetUint("host_id")

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if req.MaxPlayers == 0 {
		req.MaxPlayers = h.defaultMaxPlayers
	}

	session, err := h.sessionService.CreateSession(hostID, services.CreateSessionInput{
		QuizID:           req.QuizID,
		QuestionLimit:    req.QuestionLimit,
		TotalTimeMinutes: req.TotalTimeMinutes,
		Difficulty:       req.Difficulty,
		MaxPlayers:       req.MaxPlayers,
	})
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *SessionHandler) ListSessions(c *gin.Context) {
	hostID := c.GetUint("host_id")

	sessions, err := h.sessionService.ListSessions(hostID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessions)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, err := parseID(c, "id")
	if err != nil {
		return
	}

	session, err := h.sessionService.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

// StartCountdown begins the shared pre-game countdown. Clients observe the
// session update on the change feed and count down locally on synced clocks.
func (h *SessionHandler) StartCountdown(c *gin.Context) {
	hostID := c.GetUint("host_id")
	sessionID, err := parseID(c, "id")
	if err != nil {
		return
	}

	session, err := h.sessionService.StartCountdown(sessionID, hostID)
	if err != nil {
		serviceError(c, err)
		return
	}

	h.hub.Broadcast(session.ID, ws.SessionEvent{Type: ws.EventUpdate, Session: *session})
	c.JSON(http.StatusOK, session)
}

// Activate is the countdown-expiry transition. Any client whose countdown
// hits zero may call it; losing the race is a success, not an error.
func (h *SessionHandler) Activate(c *gin.Context) {
	sessionID, err := parseID(c, "id")
	if err != nil {
		return
	}

	session, err := h.sessionService.Activate(sessionID)
	if err != nil {
		serviceError(c, err)
		return
	}

	h.hub.Broadcast(session.ID, ws.SessionEvent{Type: ws.EventUpdate, Session: *session})
	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) Finish(c *gin.Context) {
	hostID := c.GetUint("host_id")
	sessionID, err := parseID(c, "id")
	if err != nil {
		return
	}

	session, err := h.sessionService.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if session.HostID != hostID {
		serviceError(c, services.ErrUnauthorized)
		return
	}

	finished, err := h.sessionService.Finish(sessionID)
	if err != nil {
		serviceError(c, err)
		return
	}

	h.hub.Broadcast(finished.ID, ws.SessionEvent{Type: ws.EventUpdate, Session: *finished})
	c.JSON(http.StatusOK, finished)
}

func (h *SessionHandler) GetLeaderboard(c *gin.Context) {
	sessionID, err := parseID(c, "id")
	if err != nil {
		return
	}

	entries, err := h.rankService.Rank(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (h *SessionHandler) KickParticipant(c *gin.Context) {
	hostID := c.GetUint("host_id")
	sessionID, err := parseID(c, "id")
	if err != nil {
		return
	}
	participantID, err := parseID(c, "pid")
	if err != nil {
		return
	}

	if err := h.sessionService.KickParticipant(sessionID, hostID, participantID); err != nil {
		serviceError(c, err)
		return
	}

	h.hub.Broadcast(sessionID, ws.ParticipantEvent{
		Type:        ws.EventDelete,
		Participant: models.Participant{ID: participantID, SessionID: sessionID},
	})
	c.JSON(http.StatusOK, MessageResponse{Message: "participant removed"})
}

func parseID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param})
		return 0, err
	}
	return uint(id), nil
}
