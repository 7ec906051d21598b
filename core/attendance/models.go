package attendance

import (
	"errors"
	"time"
)

var (
	// errors
	ErrDraftNotFound   = errors.New("draft not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownField    = errors.New("unknown field")
	ErrNoRenderer      = errors.New("no renderer configured")
)

// TimeSlot fields
const (
	SlotDate  = "date"
	SlotStart = "start"
	SlotEnd   = "end"
)

// Participant fields
const (
	ParticipantLastName  = "last_name"
	ParticipantFirstName = "first_name"
)

// SessionMeta
const (
	MetaTitle         = "title"
	MetaTotalDuration = "total_duration"
	MetaInstructor    = "instructor"
)

type SessionMeta struct {
	Title         string `json:"title" yaml:"title" validate:"required"`
	TotalDuration string `json:"total_duration" yaml:"total_duration" validate:"required"` // free text, eg. "3" or "21h"
	Instructor    string `json:"instructor" yaml:"instructor" validate:"required"`
}

// TimeSlot is one dated occurrence ("créneau") of a training.
// No rule ties End to Start.
type TimeSlot struct {
	Date  string `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	Start string `json:"start" yaml:"start" validate:"required,hhmm"`
	End   string `json:"end" yaml:"end" validate:"required,hhmm"`
}

type Participant struct {
	LastName  string `json:"last_name" yaml:"last_name" validate:"required"`
	FirstName string `json:"first_name" yaml:"first_name" validate:"required"`
}

// Sheet is the form state an attendance sheet is rendered from.
// Slots and Participants are rendered in slice order.
type Sheet struct {
	Meta         SessionMeta   `json:"meta" yaml:"meta"`
	Slots        []TimeSlot    `json:"slots" yaml:"slots" validate:"dive"`
	Participants []Participant `json:"participants" yaml:"participants" validate:"dive"`
}

// Draft is a Sheet being edited in the console, optionally linked to a remote session.
type Draft struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Sheet     Sheet     `json:"sheet"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// SessionRecord is the remote attendance-sheet metadata of a session, as fetched for hydration.
type SessionRecord struct {
	Meta         SessionMeta
	Slots        []TimeSlot
	Participants []Participant
}

// StoredSheet is a generated sheet persisted by the remote API.
type StoredSheet struct {
	ID           int
	SessionID    string
	Path         string
	GeneratedAt  string // raw, may be malformed
	SessionTitle string
}

// Upload is a generated sheet sent to the remote store.
type Upload struct {
	SessionID string
	FileName  string
	Content   []byte
}

// Artifact is a rendered attendance sheet.
type Artifact struct {
	SessionID   string
	FileName    string
	ContentType string
	Content     []byte
	GeneratedAt time.Time
}
