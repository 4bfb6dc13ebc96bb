package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidKind = goerr.New("invalid record kind")
)

type RecordID string

// NewRecordID generates a new unique RecordID. UUIDv7 embeds the creation time, so IDs
// sort by insertion time.
func NewRecordID() RecordID {
	return RecordID(uuid.Must(uuid.NewV7()).String())
}

// Kind is the type of generated artifact. It doubles as the tab identifier.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Kinds lists all kinds in display order
var Kinds = []Kind{KindText, KindImage, KindAudio}

// Validate checks if the kind is valid
func (k Kind) Validate() error {
	switch k {
	case KindText, KindImage, KindAudio:
		return nil
	default:
		return goerr.Wrap(ErrInvalidKind, "unknown kind", goerr.V("kind", k))
	}
}

// Record is one generated artifact: a prompt and what came back for it
type Record struct {
	ID        RecordID  `json:"id"`
	Kind      Kind      `json:"kind"`
	Prompt    string    `json:"prompt"`
	Result    string    `json:"result"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Image only
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Seed   string `json:"seed,omitempty"`
}

// NewRecord creates a record stamped with a fresh ID and the current time
func NewRecord(kind Kind, prompt, result, model string) *Record {
	return &Record{
		ID:        NewRecordID(),
		Kind:      kind,
		Prompt:    prompt,
		Result:    result,
		Model:     model,
		CreatedAt: time.Now(),
	}
}
