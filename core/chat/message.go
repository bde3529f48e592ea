package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxAuthorLength is the longest accepted author name, in runes.
	MaxAuthorLength = 32
	// MaxBodyLength is the longest accepted message body, in runes.
	MaxBodyLength = 2000
)

// Message is an accepted chat message. Timestamp is assigned by the server at
// acceptance time. Values are never mutated after acceptance.
type Message struct {
	ID        uuid.UUID
	Author    string
	Body      string
	Timestamp time.Time
}

// frame is the JSON shape of a message on the wire and in document stores.
type frame struct {
	ID      string    `json:"id,omitempty"`
	Name    string    `json:"name"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// MarshalJSON encodes the message as {"id","name","message","time"} with time in UTC.
func (m Message) MarshalJSON() ([]byte, error) {
	f := frame{
		Name:    m.Author,
		Message: m.Body,
		Time:    m.Timestamp.UTC(),
	}
	if m.ID != uuid.Nil {
		f.ID = m.ID.String()
	}
	return json.Marshal(f)
}

// UnmarshalJSON decodes a stored or outbound frame. It trusts the time field and
// is not a substitute for Validator on client input.
func (m *Message) UnmarshalJSON(data []byte) error {
	var f struct {
		frame
		Content   string    `json:"content"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	id := uuid.Nil
	if f.ID != "" {
		parsed, err := uuid.Parse(f.ID)
		if err != nil {
			return err
		}
		id = parsed
	}

	body := f.Message
	if body == "" {
		body = f.Content
	}
	ts := f.Time
	if ts.IsZero() {
		ts = f.Timestamp
	}

	*m = Message{ID: id, Author: f.Name, Body: body, Timestamp: ts.UTC()}
	return nil
}

// EncodeHistory renders a replay frame: a JSON array of messages, oldest first.
func EncodeHistory(msgs []Message) ([]byte, error) {
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(msgs)
}
