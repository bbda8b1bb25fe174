package scan

import (
	"encoding/base64"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const FormatDICOM = "DICOM"

// Record is a single ingested scan artifact attached to a patient. The
// payload is stored as a text-safe base64 blob alongside the original byte
// size so integrity can be re-verified on read.
type Record struct {
	ID         uuid.UUID `json:"id"`
	FileName   string    `json:"file_name"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
	UploadedBy uuid.UUID `json:"uploaded_by"`
	Format     string    `json:"format"`
	Payload    string    `json:"payload"`
}

// Decode returns the original bytes of the stored payload.
func (r *Record) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Payload)
}

// Meta returns a copy of the record with the payload stripped, for listings.
func (r *Record) Meta() Record {
	m := *r
	m.Payload = ""
	return m
}

// File is the caller-side input to the pipeline: a named, sized, readable
// byte stream, as supplied by a file picker or local filesystem.
type File struct {
	Name    string
	Size    int64
	Content io.Reader
}

// MatchesFormat reports whether the file name passes the extension
// allow-list. A "dicom" marker anywhere in the name is also accepted.
func (f *File) MatchesFormat(allowed []string) bool {
	name := strings.ToLower(f.Name)
	if strings.Contains(name, "dicom") {
		return true
	}
	ext := filepath.Ext(name)
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// State is the per-attempt lifecycle of an upload. Committed, Rejected and
// Aborted are terminal.
type State string

const (
	StateSelected     State = "selected"
	StateValidated    State = "validated"
	StateTransferring State = "transferring"
	StateCommitted    State = "committed"
	StateRejected     State = "rejected"
	StateAborted      State = "aborted"
)

var transitions = map[State][]State{
	StateSelected:     {StateValidated, StateRejected},
	StateValidated:    {StateTransferring, StateRejected},
	StateTransferring: {StateCommitted, StateAborted},
}

func (s State) Terminal() bool {
	switch s {
	case StateCommitted, StateRejected, StateAborted:
		return true
	}
	return false
}

// Upload tracks one ingestion attempt through the state machine.
type Upload struct {
	File      *File
	State     State
	StartedAt time.Time
}

func NewUpload(f *File) *Upload {
	return &Upload{File: f, State: StateSelected, StartedAt: time.Now()}
}

// Advance moves the attempt to the next state. Returns
// ErrInvalidTransition when the move is not legal from the current state.
func (u *Upload) Advance(next State) error {
	for _, allowed := range transitions[u.State] {
		if next == allowed {
			u.State = next
			return nil
		}
	}
	return ErrInvalidTransition
}
