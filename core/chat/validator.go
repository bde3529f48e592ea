package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dmitrymomot/chatrelay/core/sanitizer"
)

// Draft is a decoded but not yet validated client message.
type Draft struct {
	Name string
	Body string
}

// inbound mirrors the client frame. Pointers distinguish a wrong type (decode
// error) from an absent field (treated as empty). time/timestamp are ignored.
type inbound struct {
	Name    *string `json:"name"`
	Message *string `json:"message"`
	Content *string `json:"content"`
}

type candidate struct {
	Name    string `json:"name" sanitize:"display_name" validate:"required,max=32"`
	Message string `json:"message" sanitize:"text" validate:"required,max=2000"`
}

// Validator turns raw client frames into accepted messages.
// Safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
	newID    func() uuid.UUID
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithIDGenerator overrides the message id source.
func WithIDGenerator(fn func() uuid.UUID) ValidatorOption {
	return func(v *Validator) {
		if fn != nil {
			v.newID = fn
		}
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	v := &Validator{
		validate: validate,
		now:      time.Now,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Accept decodes a single message object and validates it.
func (v *Validator) Accept(raw []byte) (Message, error) {
	var in inbound
	if err := decodeStrict(raw, &in); err != nil {
		return Message{}, err
	}
	return v.Validate(in.draft())
}

// Decode parses a frame holding either one message object or an array of them.
// It performs no validation.
func (v *Validator) Decode(raw []byte) ([]Draft, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, malformed(errors.New("empty frame"))
	}

	switch trimmed[0] {
	case '{':
		var in inbound
		if err := decodeStrict(trimmed, &in); err != nil {
			return nil, err
		}
		return []Draft{in.draft()}, nil
	case '[':
		var batch []inbound
		if err := decodeStrict(trimmed, &batch); err != nil {
			return nil, err
		}
		drafts := make([]Draft, 0, len(batch))
		for _, in := range batch {
			drafts = append(drafts, in.draft())
		}
		return drafts, nil
	default:
		return nil, malformed(errors.New("frame must be a JSON object or array"))
	}
}

// Validate sanitizes and bounds-checks a draft and stamps the server time.
// Sanitizing an already clean, in-bounds draft does not change it.
func (v *Validator) Validate(d Draft) (Message, error) {
	c := candidate{Name: d.Name, Message: d.Body}
	if err := sanitizer.SanitizeStruct(&c); err != nil {
		return Message{}, malformed(err)
	}

	if err := v.validate.Struct(c); err != nil {
		return Message{}, translate(err)
	}

	return Message{
		ID:        v.newID(),
		Author:    c.Name,
		Body:      c.Message,
		Timestamp: v.now().UTC(),
	}, nil
}

func (in inbound) draft() Draft {
	var d Draft
	if in.Name != nil {
		d.Name = *in.Name
	}
	switch {
	case in.Message != nil:
		d.Body = *in.Message
	case in.Content != nil:
		d.Body = *in.Content
	}
	return d
}

func decodeStrict(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return malformed(err)
	}
	return nil
}

// translate maps the first validator failure onto the chat error taxonomy.
func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return malformed(err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return &ValidationError{Kind: EmptyField, Field: fe.Field(), Err: fe}
	case "max":
		limit := MaxBodyLength
		if fe.Field() == "name" {
			limit = MaxAuthorLength
		}
		return &ValidationError{Kind: FieldTooLong, Field: fe.Field(), Max: limit, Err: fe}
	default:
		return malformed(fe)
	}
}
