package assessment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hperssn/steady/catalog"
)

type Category string

const (
	Wellbeing  Category = "wellbeing"
	Depression Category = "depression"
	Anxiety    Category = "anxiety"
)

var Categories = []Category{Wellbeing, Depression, Anxiety}

type ResponseOption struct {
	Value       int    `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type Question struct {
	ID       string           `json:"questionId"`
	Category Category         `json:"category"`
	Text     string           `json:"text"`
	Options  []ResponseOption `json:"responseOptions"`
}

// MaxValue returns the highest score any option of q contributes.
func (q Question) MaxValue() int {
	max := 0
	for _, o := range q.Options {
		if o.Value > max {
			max = o.Value
		}
	}
	return max
}

func (q Question) hasValue(v int) bool {
	for _, o := range q.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// Catalog is the immutable question bank plus the severity tables used to
// classify category scores. Build one with NewCatalog or LoadCatalog so the
// derived indexes are populated and validated.
type Catalog struct {
	Questions        []Question                 `json:"questions"`
	SafetyQuestionID string                     `json:"safetyQuestionId"`
	Severity         map[Category]SeverityTable `json:"severity"`

	byID     map[string]Question
	counts   map[Category]int
	maxValue map[Category]int
}

// NewCatalog indexes and validates the given questions and tables.
func NewCatalog(questions []Question, safetyQuestionID string, severity map[Category]SeverityTable) (*Catalog, error) {
	c := &Catalog{
		Questions:        questions,
		SafetyQuestionID: safetyQuestionID,
		Severity:         severity,
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCatalog decodes a JSON catalog and validates it.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, configErrorf("catalog", "decode: %v", err)
	}
	return NewCatalog(c.Questions, c.SafetyQuestionID, c.Severity)
}

// LoadCatalogFile reads the catalog at path, or the embedded default when
// path is empty.
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question catalog: %w", err)
	}
	defer f.Close()

	return LoadCatalog(f)
}

// DefaultCatalog returns the built-in WHO-5, PHQ-9 and GAD-7 question bank.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(bytes.NewReader(catalog.Questions))
}

func (c *Catalog) index() error {
	c.byID = make(map[string]Question, len(c.Questions))
	c.counts = make(map[Category]int)
	c.maxValue = make(map[Category]int)

	for _, q := range c.Questions {
		if q.ID == "" {
			return configErrorf("questions", "question with empty id")
		}
		if _, dup := c.byID[q.ID]; dup {
			return configErrorf("questions", "duplicate question id %q", q.ID)
		}
		if !knownCategory(q.Category) {
			return configErrorf(q.ID, "unknown category %q", q.Category)
		}
		if len(q.Options) == 0 {
			return configErrorf(q.ID, "no response options")
		}

		max := q.MaxValue()
		if seen, ok := c.maxValue[q.Category]; ok && seen != max {
			return configErrorf(q.ID, "max option value %d differs from %d used by other %s questions", max, seen, q.Category)
		}
		c.maxValue[q.Category] = max
		c.counts[q.Category]++
		c.byID[q.ID] = q
	}

	for _, cat := range Categories {
		if c.counts[cat] == 0 {
			return configErrorf(string(cat), "category has no questions")
		}
		if c.maxValue[cat] <= 0 {
			return configErrorf(string(cat), "category has no scoring options")
		}
		if err := c.Severity[cat].Validate(0, c.ScoreDomainMax(cat)); err != nil {
			return fmt.Errorf("severity table %s: %w", cat, err)
		}
	}

	if _, ok := c.byID[c.SafetyQuestionID]; !ok {
		return configErrorf("safetyQuestionId", "sentinel question %q not in catalog", c.SafetyQuestionID)
	}

	return nil
}

func knownCategory(cat Category) bool {
	for _, c := range Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// Question looks up a question by id.
func (c *Catalog) Question(id string) (Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// Count returns the number of questions in a category.
func (c *Catalog) Count(cat Category) int {
	return c.counts[cat]
}

// MaxOptionValue returns the shared scale maximum of a category.
func (c *Catalog) MaxOptionValue(cat Category) int {
	return c.maxValue[cat]
}

// ScoreDomainMax is the largest value the severity table of cat has to
// cover: 100 for the percentage-scored wellbeing category, the maximum raw
// sum for the others.
func (c *Catalog) ScoreDomainMax(cat Category) int {
	if cat == Wellbeing {
		return 100
	}
	return c.counts[cat] * c.maxValue[cat]
}

// CheckAnswer reports whether value is one of the response options of the
// question with the given id.
func (c *Catalog) CheckAnswer(a Answer) error {
	q, ok := c.byID[a.QuestionID]
	if !ok {
		return fmt.Errorf("%w: unknown question %q", ErrInvalidAnswer, a.QuestionID)
	}
	if !q.hasValue(a.Value) {
		return fmt.Errorf("%w: value %d is not an option of %s", ErrInvalidAnswer, a.Value, a.QuestionID)
	}
	return nil
}
