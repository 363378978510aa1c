package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"planilla/internal/core"
)

// WeekClosedMessage announces that a week was frozen. The consumer reloads
// the week from the database, so only identifiers travel on the wire.
type WeekClosedMessage struct {
	ID        string    `json:"id"`
	WeekID    int64     `json:"week_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	ClosedAt  time.Time `json:"closed_at"`
}

// NewWeekClosedMessage builds a message with a fresh id.
func NewWeekClosedMessage(w core.Week) *WeekClosedMessage {
	return &WeekClosedMessage{
		ID:        uuid.NewString(),
		WeekID:    w.ID,
		StartDate: w.StartDate.String(),
		EndDate:   w.EndDate.String(),
		ClosedAt:  time.Now().UTC(),
	}
}

func (m *WeekClosedMessage) Validate() error {
	if m.ID == "" {
		return errors.New("message id is required")
	}
	if _, err := uuid.Parse(m.ID); err != nil {
		return errors.New("message id is not a uuid")
	}
	if m.WeekID <= 0 {
		return errors.New("week_id must be positive")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *WeekClosedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// WeekClosedMessageFromJSON decodes and validates a delivery body.
func WeekClosedMessageFromJSON(data []byte) (*WeekClosedMessage, error) {
	var msg WeekClosedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
