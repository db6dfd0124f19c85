package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/k1zuko/crazyrace-sub000/internal/models"
	"github.com/k1zuko/crazyrace-sub000/internal/services"
	"github.com/k1zuko/crazyrace-sub000/internal/ws"
)

type PlayHandler struct {
	joinService    *services.JoinService
	answerService  *services.AnswerService
	sessionService *services.SessionService
	rankService    *services.RankService
	hub            *ws.Hub
}

func NewPlayHandler(
	joinService *services.JoinService,
	answerService *services.AnswerService,
	sessionService *services.SessionService,
	rankService *services.RankService,
	hub *ws.Hub,
) *PlayHandler {
	return &PlayHandler{
		joinService:    joinService,
		answerService:  answerService,
		sessionService: sessionService,
		rankService:    rankService,
		hub:            hub,
	}
}

type PlayJoinRequest struct {
	GamePin  string `json:"game_pin" binding:"required,len=6"`
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname" binding:"required,min=1,max=100"`
}

func (h *PlayHandler) Join(c *gin.Context) {
	var req PlayJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.joinService.Join(req.GamePin, req.PlayerID, req.Nickname)
	if err != nil {
		serviceError(c, err)
		return
	}

	if !result.Rejoined {
		h.hub.Broadcast(result.Session.ID, ws.ParticipantEvent{
			Type:        ws.EventInsert,
			Participant: result.Participant,
		})
	}

	c.JSON(http.StatusOK, result)
}

// PlayQuestion is the sanitized question shape. Correctness never leaves the
// server before the participant has submitted.
type PlayQuestion struct {
	ID       uint         `json:"id"`
	Text     string       `json:"text"`
	ImageURL string       `json:"image_url,omitempty"`
	Options  []PlayOption `json:"options"`
}

type PlayOption struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

// Questions returns the session's question set in this player's personal
// order: shuffled with a seed derived from the player token, so the order
// survives page reloads.
func (h *PlayHandler) Questions(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Query("session_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session_id"})
		return
	}
	playerID := c.Query("player_id")
	if playerID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "player_id required"})
		return
	}

	if _, err := h.joinService.GetParticipant(uint(sessionID), playerID); err != nil {
		serviceError(c, err)
		return
	}

	session, err := h.sessionService.GetSession(uint(sessionID))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	shuffled := services.Shuffle(session.Questions, services.ShuffleSeed(playerID))

	out := make([]PlayQuestion, len(shuffled))
	for i, q := range shuffled {
		pq := PlayQuestion{ID: q.ID, Text: q.Text, ImageURL: q.ImageURL}
		for _, o := range q.Options {
			pq.Options = append(pq.Options, PlayOption{Text: o.Text, ImageURL: o.ImageURL})
		}
		out[i] = pq
	}

	c.JSON(http.StatusOK, gin.H{"questions": out, "total": len(out)})
}

type PlayAnswerRequest struct {
	ParticipantID    uint                     `json:"participant_id" binding:"required"`
	QuestionID       uint                     `json:"question_id" binding:"required"`
	AnswerIndex      int                      `json:"answer_index"`
	ScorePerQuestion int                      `json:"score_per_question" binding:"required"`
	NextIndex        int                      `json:"next_index" binding:"required"`
	IsFinished       bool                     `json:"is_finished"`
	IsRacing         bool                     `json:"is_racing"`
	Pending          []services.PendingAnswer `json:"pending,omitempty"`
	PendingScore     int                      `json:"pending_score"`
	PendingCorrect   int                      `json:"pending_correct"`
}

func (h *PlayHandler) Answer(c *gin.Context) {
	var req PlayAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.answerService.SubmitAnswer(services.SubmitAnswerInput{
		ParticipantID:    req.ParticipantID,
		QuestionID:       req.QuestionID,
		AnswerIndex:      req.AnswerIndex,
		ScorePerQuestion: req.ScorePerQuestion,
		NextIndex:        req.NextIndex,
		IsFinished:       req.IsFinished,
		IsRacing:         req.IsRacing,
		Pending:          req.Pending,
		PendingScore:     req.PendingScore,
		PendingCorrect:   req.PendingCorrect,
	})
	if err != nil {
		serviceError(c, err)
		return
	}

	h.broadcastParticipant(req.ParticipantID)
	c.JSON(http.StatusOK, result)
}

type PlayBatchRequest struct {
	ParticipantID uint                     `json:"participant_id" binding:"required"`
	Answers       []services.PendingAnswer `json:"answers"`
	ScoreAdd      int                      `json:"score_add"`
	CorrectAdd    int                      `json:"correct_add"`
	NextIndex     int                      `json:"next_index"`
	IsFinished    bool                     `json:"is_finished"`
	IsRacing      bool                     `json:"is_racing"`
}

func (h *PlayHandler) AnswerBatch(c *gin.Context) {
	var req PlayBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	err := h.answerService.SubmitBatch(services.SubmitBatchInput{
		ParticipantID: req.ParticipantID,
		Answers:       req.Answers,
		ScoreAdd:      req.ScoreAdd,
		CorrectAdd:    req.CorrectAdd,
		NextIndex:     req.NextIndex,
		IsFinished:    req.IsFinished,
		IsRacing:      req.IsRacing,
	})
	if err != nil {
		serviceError(c, err)
		return
	}

	h.broadcastParticipant(req.ParticipantID)
	c.JSON(http.StatusOK, MessageResponse{Message: "batch accepted"})
}

type ParticipantActionRequest struct {
	ParticipantID uint   `json:"participant_id" binding:"required"`
	Car           string `json:"car,omitempty"`
}

// RacingDone exits the minigame. The question pointer is untouched: racing
// consumes no question.
func (h *PlayHandler) RacingDone(c *gin.Context) {
	var req ParticipantActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	participant, err := h.answerService.StopRacing(req.ParticipantID)
	if err != nil {
		serviceError(c, err)
		return
	}

	h.hub.Broadcast(participant.SessionID, ws.ParticipantEvent{
		Type:        ws.EventUpdate,
		Participant: *participant,
	})
	c.JSON(http.StatusOK, participant)
}

func (h *PlayHandler) SetCar(c *gin.Context) {
	var req ParticipantActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	participant, err := h.answerService.SetCar(req.ParticipantID, req.Car)
	if err != nil {
		serviceError(c, err)
		return
	}

	h.hub.Broadcast(participant.SessionID, ws.ParticipantEvent{
		Type:        ws.EventUpdate,
		Participant: *participant,
	})
	c.JSON(http.StatusOK, participant)
}

// State is the reload/reconnect snapshot: session phase, own participant row
// (including the persisted racing flag) and current rank if completed.
func (h *PlayHandler) State(c *gin.Context) {
	pin := c.Query("game_pin")
	playerID := c.Query("player_id")
	if pin == "" || playerID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "game_pin and player_id required"})
		return
	}

	session, err := h.sessionService.GetSessionByPin(pin)
	if err != nil {
		serviceError(c, err)
		return
	}

	participant, err := h.joinService.GetParticipant(session.ID, playerID)
	if err != nil {
		serviceError(c, err)
		return
	}

	resp := gin.H{
		"session":     sanitizeSession(session),
		"participant": participant,
	}
	if participant.Completion {
		if rank, err := h.rankService.RankOf(session.ID, participant.ID); err == nil {
			resp["rank"] = rank
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *PlayHandler) broadcastParticipant(participantID uint) {
	participant, err := h.joinService.GetParticipantByID(participantID)
	if err != nil {
		return
	}
	h.hub.Broadcast(participant.SessionID, ws.ParticipantEvent{
		Type:        ws.EventUpdate,
		Participant: *participant,
	})
}

func sanitizeSession(session *models.Session) models.Session {
	s := *session
	s.Questions = nil
	s.Participants = nil
	return s
}
