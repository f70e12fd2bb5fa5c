package domain

import "time"

// Turn is a single completed exchange in a conversation thread:
// the viewer's question and the assistant's answer.
type Turn struct {
	Question string
	Answer   string
	At       time.Time
}

// ArchivedTurn is the persisted form of a completed turn.
type ArchivedTurn struct {
	PK             string
	SK             string
	UserID         string
	ConversationID string
	Question       string
	Answer         string
	Turns          int
	TTL            int64
}
