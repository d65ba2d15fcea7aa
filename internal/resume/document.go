// Package resume defines the résumé document edited by a session: the
// snapshot type, its canonical form used for structural equality, the
// editable field catalogue, and the storage contract.
package resume

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/google/uuid"
)

// Contact holds the header block of a résumé.
type Contact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Website  string `json:"website"`
}

// Experience is one position held.
type Experience struct {
	Company    string   `json:"company"`
	Role       string   `json:"role"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Highlights []string `json:"highlights"`
}

// Education is one degree or certificate.
type Education struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Year   string `json:"year"`
}

// Document is a full snapshot of the editable state. Values are treated as
// immutable once handed to a session: edits go through Clone.
type Document struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Contact    Contact      `json:"contact"`
	Summary    string       `json:"summary"`
	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`
	Skills     []string     `json:"skills"`
}

// New returns a blank document with a fresh ID.
func New(title string) Document {
	return Document{
		ID:    uuid.NewString(),
		Title: title,
	}
}

// Clone returns a deep copy that shares no slices with d.
func (d Document) Clone() Document {
	out := d
	out.Skills = slices.Clone(d.Skills)
	out.Education = slices.Clone(d.Education)
	if d.Experience != nil {
		out.Experience = make([]Experience, len(d.Experience))
		for i, e := range d.Experience {
			e.Highlights = slices.Clone(e.Highlights)
			out.Experience[i] = e
		}
	}
	return out
}

// Canonical returns the serialized form used for structural equality.
// Nil and empty slices serialize identically so that clearing a list and
// never having one compare equal.
func (d Document) Canonical() []byte {
	n := d.Clone()
	if n.Skills == nil {
		n.Skills = []string{}
	}
	if n.Education == nil {
		n.Education = []Education{}
	}
	if n.Experience == nil {
		n.Experience = []Experience{}
	}
	for i := range n.Experience {
		if n.Experience[i].Highlights == nil {
			n.Experience[i].Highlights = []string{}
		}
	}
	// Marshal cannot fail: the type has only strings and slices of them.
	b, _ := json.Marshal(n)
	return b
}

// Fingerprint is Canonical as a string, convenient as a map key or for
// cheap comparisons held across goroutines.
func (d Document) Fingerprint() string {
	return string(d.Canonical())
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Document) bool {
	return bytes.Equal(a.Canonical(), b.Canonical())
}

// AddExperience returns a copy of d with an empty experience entry appended.
func (d Document) AddExperience() Document {
	out := d.Clone()
	out.Experience = append(out.Experience, Experience{})
	return out
}

// RemoveExperience returns a copy of d without entry i. Out-of-range
// indexes return an unchanged copy.
func (d Document) RemoveExperience(i int) Document {
	out := d.Clone()
	if i < 0 || i >= len(out.Experience) {
		return out
	}
	out.Experience = slices.Delete(out.Experience, i, i+1)
	return out
}
