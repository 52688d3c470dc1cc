package assessment

import "math"

type Answer struct {
	QuestionID string `json:"questionId"`
	Value      int    `json:"value"`
}

// Answers holds at most one value per question id. Setting an id again
// replaces the earlier value.
type Answers map[string]int

// Collect builds an answer set from submissions in order, so a later
// submission for the same question wins.
func Collect(list []Answer) Answers {
	answers := make(Answers, len(list))
	for _, a := range list {
		answers.Set(a.QuestionID, a.Value)
	}
	return answers
}

func (a Answers) Set(questionID string, value int) {
	a[questionID] = value
}

type ScoreResult struct {
	Raw            int    `json:"raw"`
	Percentage     *int   `json:"percentage,omitempty"`
	Level          string `json:"level"`
	Recommendation string `json:"recommendation,omitempty"`
}

type Report struct {
	Wellbeing  ScoreResult `json:"wellbeing"`
	Depression ScoreResult `json:"depression"`
	Anxiety    ScoreResult `json:"anxiety"`
	SafetyFlag bool        `json:"safetyFlag"`
	Answered   int         `json:"answered"`
	Total      int         `json:"total"`
}

// ScoreCategory sums the values of answered questions in cat. Unanswered
// questions, ids outside the catalog and values that are not one of the
// question's options contribute nothing, so a score never leaves
// [0, ScoreDomainMax].
func (c *Catalog) ScoreCategory(cat Category, answers Answers) int {
	raw := 0
	for id, v := range answers {
		if q, ok := c.byID[id]; ok && q.Category == cat && q.hasValue(v) {
			raw += v
		}
	}
	return raw
}

// ScoreWellbeing returns the raw wellbeing sum and its share of the maximum
// possible sum as a rounded percentage.
func (c *Catalog) ScoreWellbeing(answers Answers) (raw, percentage int, err error) {
	denom := c.counts[Wellbeing] * c.maxValue[Wellbeing]
	if denom == 0 {
		return 0, 0, configErrorf(string(Wellbeing), "category has no scorable questions")
	}

	raw = c.ScoreCategory(Wellbeing, answers)
	percentage = int(math.Round(float64(raw) / float64(denom) * 100))
	return raw, percentage, nil
}

// CheckSafetyFlag reports whether the sentinel question was answered with
// anything other than zero. No answer does not trigger the flag.
func (c *Catalog) CheckSafetyFlag(answers Answers) bool {
	return answers[c.SafetyQuestionID] > 0
}

// Score evaluates a full assessment. Partial answer sets are scored as
// given; the safety flag is always computed.
func (c *Catalog) Score(answers Answers) (Report, error) {
	raw, pct, err := c.ScoreWellbeing(answers)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Wellbeing:  c.result(Wellbeing, raw, pct),
		SafetyFlag: c.CheckSafetyFlag(answers),
		Total:      len(c.Questions),
	}
	report.Wellbeing.Percentage = &pct
	report.Depression = c.result(Depression, c.ScoreCategory(Depression, answers), 0)
	report.Anxiety = c.result(Anxiety, c.ScoreCategory(Anxiety, answers), 0)

	for id, v := range answers {
		if q, ok := c.byID[id]; ok && q.hasValue(v) {
			report.Answered++
		}
	}

	return report, nil
}

func (c *Catalog) result(cat Category, raw, pct int) ScoreResult {
	score := raw
	if cat == Wellbeing {
		score = pct
	}

	res := ScoreResult{Raw: raw, Level: UnknownLevel}
	if b, ok := c.Severity[cat].band(score); ok {
		res.Level = b.Level
		res.Recommendation = b.Recommendation
	}
	return res
}
