package ws

import "github.com/k1zuko/crazyrace-sub000/internal/models"

// Change-feed events are a tagged union per table: clients switch on the
// table field and get a fully typed row, instead of inspecting a loose blob.

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

type Event interface {
	message() wireMessage
}

type wireMessage struct {
	Table string      `json:"table"`
	Event EventType   `json:"event"`
	Data  interface{} `json:"data"`
}

type SessionEvent struct {
	Type    EventType
	Session models.Session
}

func (e SessionEvent) message() wireMessage {
	// never ship the question snapshot (it carries correct indexes) on the feed
	s := e.Session
	s.Questions = nil
	return wireMessage{Table: "sessions", Event: e.Type, Data: s}
}

type ParticipantEvent struct {
	Type        EventType
	Participant models.Participant
}

func (e ParticipantEvent) message() wireMessage {
	return wireMessage{Table: "participants", Event: e.Type, Data: e.Participant}
}
