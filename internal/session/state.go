// Package session threads dashboard state through user interactions. Each
// interaction takes a State and returns the next one; a State's dataset is
// never mutated after it has been handed out.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/outlier"
	"github.com/KaramelBytes/edadash/internal/plot"
)

// Level grades a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Notice is a message for the user about the last interaction.
type Notice struct {
	Level   Level
	Message string
}

// ReportFiles are the artifacts of the last generated report.
type ReportFiles struct {
	EntryID string
	HTML    string
	PDF     string
	JSON    string
}

// State is everything one session knows.
type State struct {
	ID string
	// FileName is the name the user uploaded; Path is where it was saved.
	FileName string
	Path     string
	Data     *dataset.Dataset
	// Notices describe the outcome of the last interaction only.
	Notices  []Notice
	Outliers *outlier.Result
	Plot     plot.Request
	Report   *ReportFiles
	// Steps lists the operations applied since the upload.
	Steps     []string
	UpdatedAt time.Time
}

// NewState starts an empty session.
func NewState() State {
	return State{ID: uuid.NewString(), UpdatedAt: time.Now()}
}

// HasData reports whether a dataset is loaded.
func (s State) HasData() bool { return s.Data != nil }

// WithNotice replaces the notices with a single message.
func (s State) WithNotice(level Level, msg string) State {
	s.Notices = []Notice{{Level: level, Message: msg}}
	s.UpdatedAt = time.Now()
	return s
}

func (s State) step(desc string) State {
	s.Steps = append(append([]string(nil), s.Steps...), desc)
	return s
}
