package testutil

import (
	"context"
	"sync"

	"github.com/zjrosen/vitae/internal/resume"
)

// SampleDocument returns a fully populated document.
func SampleDocument() resume.Document {
	return resume.Document{
		ID:    "sample-1",
		Title: "Platform engineer",
		Contact: resume.Contact{
			Name:     "Ada Lovelace",
			Email:    "ada@example.com",
			Location: "London",
		},
		Summary: "Engineer with a taste for engines.",
		Experience: []resume.Experience{
			{
				Company:    "Analytical Engines",
				Role:       "Programmer",
				Start:      "1842",
				Highlights: []string{"Published the first algorithm"},
			},
		},
		Education: []resume.Education{{School: "Home", Degree: "Mathematics", Year: "1835"}},
		Skills:    []string{"math", "poetry"},
	}
}

// RecordingPersister stores every persisted document in memory and can be
// told to fail.
type RecordingPersister struct {
	mu   sync.Mutex
	docs []resume.Document
	err  error
}

// Persist records doc, or returns the configured error.
func (p *RecordingPersister) Persist(_ context.Context, doc resume.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.docs = append(p.docs, doc.Clone())
	return nil
}

// SetErr makes subsequent Persist calls fail with err (nil to succeed).
func (p *RecordingPersister) SetErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Count returns the number of successful persists.
func (p *RecordingPersister) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.docs)
}

// Last returns the most recently persisted document.
func (p *RecordingPersister) Last() (resume.Document, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.docs) == 0 {
		return resume.Document{}, false
	}
	return p.docs[len(p.docs)-1], true
}
