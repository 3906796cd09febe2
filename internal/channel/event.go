package channel

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/pgportal/internal/model"
)

// DefaultMessage is used when a broadcast carries no message text.
const DefaultMessage = "You have a new notification"

// Event is a normalized live notification.
type Event struct {
	NotificationID string
	Message        string
	Category       string
	ReceivedAt     time.Time
}

type eventBody struct {
	ID       string `json:"id"`
	Message  string `json:"message"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

// eventEnvelope accepts the nested forms {"notification": {...}} and
// {"data": {...}} as well as a flat body.
type eventEnvelope struct {
	Notification *eventBody `json:"notification"`
	Data         *eventBody `json:"data"`
	eventBody
}

// Decode parses a broadcast payload. Missing fields fall back to
// DefaultMessage and the info category; unknown categories become info.
func Decode(raw []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("decoding notification payload: %w", err)
	}

	body := env.eventBody
	switch {
	case env.Notification != nil:
		body = *env.Notification
	case env.Data != nil:
		body = *env.Data
	}

	category := body.Type
	if category == "" {
		category = body.Category
	}
	message := strings.TrimSpace(body.Message)
	if message == "" {
		message = DefaultMessage
	}

	return Event{
		NotificationID: body.ID,
		Message:        message,
		Category:       model.NormalizeCategory(category),
		ReceivedAt:     time.Now(),
	}, nil
}
