package cce

import (
	"time"

	"github.com/google/uuid"
)

// Thought is the assembled output of one cognitive cycle. Immutable after
// construction: every field is set once, by Assembly.
type Thought struct {
	ID            uuid.UUID
	Content       Content
	Salience      SalienceScore
	CreatedAt     time.Time
	ParentID      *uuid.UUID
	SourceStream  *string
}

// NewThought creates a thought with a fresh id and the current time.
func NewThought(content Content, salience SalienceScore) Thought {
	return Thought{
		ID:        uuid.New(),
		Content:   content,
		Salience:  salience,
		CreatedAt: time.Now().UTC(),
	}
}

// WithParent records the thought that led to this one.
func (t Thought) WithParent(parentID uuid.UUID) Thought {
	t.ParentID = &parentID
	return t
}

// WithSource records which stream the winning content came from.
func (t Thought) WithSource(stream string) Thought {
	t.SourceStream = &stream
	return t
}

// StreamEntry is one record appended to a Stream Store stream: server
// assigned id plus the content, salience, timestamp and optional source
// label that were appended alongside it.
type StreamEntry struct {
	ID        string
	Stream    string
	Content   Content
	Salience  SalienceScore
	Timestamp time.Time
	Source    *string
}

// Window is Autoflow's per-cycle holder for one candidate's content and
// running attention score. Opened at the start of a cycle, discarded at its
// end; never persisted.
type Window struct {
	ID        uuid.UUID
	Label     *string
	Contents  []Content
	Salience  SalienceScore
	OpenedAt  time.Time
	IsOpen    bool
}

// NewWindow opens a new, empty window.
func NewWindow() Window {
	return Window{
		ID:       uuid.New(),
		Salience: NeutralSalience(),
		OpenedAt: time.Now().UTC(),
		IsOpen:   true,
	}
}

// WithLabel attaches a human-readable label.
func (w Window) WithLabel(label string) Window {
	w.Label = &label
	return w
}

// Push appends content to the window.
func (w *Window) Push(c Content) {
	w.Contents = append(w.Contents, c)
}

// Close marks the window no longer active.
func (w *Window) Close() {
	w.IsOpen = false
}
