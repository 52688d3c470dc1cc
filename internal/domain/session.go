package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hperssn/steady/catalog"
)

var ErrInvalidCatalog = errors.New("invalid session catalog")

// Session is a fixed, ordered list of timed exercises.
type Session struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Difficulty string     `json:"difficulty"`
	Moods      []string   `json:"moods,omitempty"`
	Exercises  []Exercise `json:"exercises"`
}

func (s Session) TotalSeconds() int {
	total := 0
	for _, e := range s.Exercises {
		total += e.DurationSeconds
	}
	return total
}

func (s Session) MatchesMood(mood string) bool {
	for _, m := range s.Moods {
		if strings.EqualFold(m, mood) {
			return true
		}
	}
	return false
}

func (s Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: session without id", ErrInvalidCatalog)
	}
	if len(s.Exercises) == 0 {
		return fmt.Errorf("%w: session %s has no exercises", ErrInvalidCatalog, s.ID)
	}
	for i, e := range s.Exercises {
		if e.DurationSeconds <= 0 {
			return fmt.Errorf("%w: session %s exercise %d has duration %d", ErrInvalidCatalog, s.ID, i, e.DurationSeconds)
		}
	}
	return nil
}

// Filter selects catalog sessions. Empty fields match everything.
type Filter struct {
	Category   string
	Difficulty string
	Mood       string
}

func (f Filter) match(s Session) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, s.Category) {
		return false
	}
	if f.Difficulty != "" && !strings.EqualFold(f.Difficulty, s.Difficulty) {
		return false
	}
	if f.Mood != "" && !s.MatchesMood(f.Mood) {
		return false
	}
	return true
}

type Catalog struct {
	sessions []Session
	byID     map[string]int
}

func NewCatalog(sessions []Session) (*Catalog, error) {
	c := &Catalog{
		sessions: sessions,
		byID:     make(map[string]int, len(sessions)),
	}
	for i, s := range sessions {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate session id %q", ErrInvalidCatalog, s.ID)
		}
		c.byID[s.ID] = i
	}
	return c, nil
}

func LoadCatalog(r io.Reader) (*Catalog, error) {
	var doc struct {
		Sessions []Session `json:"sessions"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return NewCatalog(doc.Sessions)
}

// LoadCatalogFile reads the catalog at path, or the embedded default when
// path is empty.
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session catalog: %w", err)
	}
	defer f.Close()

	return LoadCatalog(f)
}

func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(bytes.NewReader(catalog.Sessions))
}

func (c *Catalog) Get(id string) (Session, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Session{}, false
	}
	return c.sessions[i], true
}

func (c *Catalog) List(f Filter) []Session {
	out := make([]Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		if f.match(s) {
			out = append(out, s)
		}
	}
	return out
}
