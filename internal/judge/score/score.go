// Package score implements the hackathon score aggregator.
//
// Six component scores (tests, code quality, security, frontend, team and AI
// attribution) are combined with integer weights summing to 100 into one
// overall score and a letter grade (A-F).
package score

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Component names one of the six scored metrics.
type Component string

const (
	ComponentTest     Component = "test"
	ComponentSonar    Component = "sonar"
	ComponentSecurity Component = "security"
	ComponentFrontend Component = "frontend"
	ComponentTeam     Component = "team"
	ComponentAI       Component = "ai"
)

// Components lists every component in display order.
var Components = []Component{
	ComponentTest,
	ComponentSonar,
	ComponentSecurity,
	ComponentFrontend,
	ComponentTeam,
	ComponentAI,
}

// Label returns the human-readable component name.
func (c Component) Label() string {
	switch c {
	case ComponentTest:
		return "Tests"
	case ComponentSonar:
		return "Code Quality"
	case ComponentSecurity:
		return "Security"
	case ComponentFrontend:
		return "Frontend"
	case ComponentTeam:
		return "Team Collaboration"
	case ComponentAI:
		return "AI Attribution"
	default:
		return string(c)
	}
}

// Weights holds the integer weight of each component. Weights must sum to 100.
type Weights struct {
	Test     int `yaml:"test" json:"test"`
	Sonar    int `yaml:"sonar" json:"sonar"`
	Security int `yaml:"security" json:"security"`
	Frontend int `yaml:"frontend" json:"frontend"`
	Team     int `yaml:"team" json:"team"`
	AI       int `yaml:"ai" json:"ai"`
}

// DefaultWeights is the built-in weighting.
var DefaultWeights = Weights{
	Test:     25,
	Sonar:    30,
	Security: 20,
	Frontend: 10,
	Team:     10,
	AI:       5,
}

// For returns the weight of a component.
func (w Weights) For(c Component) int {
	switch c {
	case ComponentTest:
		return w.Test
	case ComponentSonar:
		return w.Sonar
	case ComponentSecurity:
		return w.Security
	case ComponentFrontend:
		return w.Frontend
	case ComponentTeam:
		return w.Team
	case ComponentAI:
		return w.AI
	default:
		return 0
	}
}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Total returns the sum of all weights.
func (w Weights) Total() int {
	total := 0
	for _, c := range Components {
		total += w.For(c)
	}
	return total
}

// Validate reports an error if any weight is negative or the total is not 100.
func (w Weights) Validate() error {
	for _, c := range Components {
		if w.For(c) < 0 {
			return fmt.Errorf("weight for %s is negative: %d", c, w.For(c))
		}
	}
	if total := w.Total(); total != 100 {
		return fmt.Errorf("weights must sum to 100, got %d", total)
	}
	return nil
}

// Scores holds one 0-100 value per component.
type Scores struct {
	Test     int `json:"test"`
	Sonar    int `json:"sonar"`
	Security int `json:"security"`
	Frontend int `json:"frontend"`
	Team     int `json:"team"`
	AI       int `json:"ai"`
}

// Get returns the score of a component.
func (s Scores) Get(c Component) int {
	switch c {
	case ComponentTest:
		return s.Test
	case ComponentSonar:
		return s.Sonar
	case ComponentSecurity:
		return s.Security
	case ComponentFrontend:
		return s.Frontend
	case ComponentTeam:
		return s.Team
	case ComponentAI:
		return s.AI
	default:
		return 0
	}
}

// Set assigns the score of a component.
func (s *Scores) Set(c Component, v int) {
	switch c {
	case ComponentTest:
		s.Test = v
	case ComponentSonar:
		s.Sonar = v
	case ComponentSecurity:
		s.Security = v
	case ComponentFrontend:
		s.Frontend = v
	case ComponentTeam:
		s.Team = v
	case ComponentAI:
		s.AI = v
	}
}

// Sanitize coerces a raw score to an integer in [0,100].
//
// Every non-digit character is stripped before parsing, so "85%" reads as 85,
// "-5" as 5 and "85.5" as 855 (clamped to 100). Empty or digit-free input is 0.
func Sanitize(raw string) int {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimLeft(b.String(), "0")
	if digits == "" {
		return 0
	}
	if len(digits) > 3 {
		return 100
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return Clamp(n)
}

// Clamp limits v to [0,100].
func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ParseScores sanitizes raw values keyed by component. Missing components are 0.
func ParseScores(raw map[Component]string) Scores {
	var s Scores
	for _, c := range Components {
		s.Set(c, Sanitize(raw[c]))
	}
	return s
}

// ComponentScore is one component's share of the overall score.
type ComponentScore struct {
	Name         Component `json:"name"`
	Score        int       `json:"score"`
	Weight       int       `json:"weight"`
	Contribution int       `json:"contribution"`
}

// Breakdown is the computed overall score with per-component contributions.
type Breakdown struct {
	Team         string           `json:"team,omitempty"`
	PRNumber     int              `json:"pr_number,omitempty"`
	OverallScore int              `json:"overall_score"`
	Grade        string           `json:"grade"`
	WeightedSum  int              `json:"weighted_sum"`
	Components   []ComponentScore `json:"components"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Score returns the score of a component, or 0 if it is not present.
func (b *Breakdown) Score(c Component) int {
	for _, cs := range b.Components {
		if cs.Name == c {
			return cs.Score
		}
	}
	return 0
}

// Scores returns the component scores as a Scores value.
func (b *Breakdown) Scores() Scores {
	var s Scores
	for _, cs := range b.Components {
		s.Set(cs.Name, cs.Score)
	}
	return s
}

// Drift returns the sum of rounded contributions minus the overall score.
// Independent rounding can make it non-zero; the value is reported, not corrected.
func (b *Breakdown) Drift() int {
	sum := 0
	for _, cs := range b.Components {
		sum += cs.Contribution
	}
	return sum - b.OverallScore
}

// Aggregator combines component scores with a fixed set of weights.
type Aggregator struct {
	Weights Weights
	Now     func() time.Time
}

// NewAggregator creates an aggregator with the given weights.
func NewAggregator(w Weights) *Aggregator {
	return &Aggregator{
		Weights: w,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// Compute builds a Breakdown from component scores. Scores outside [0,100] are clamped.
func (a *Aggregator) Compute(s Scores) *Breakdown {
	weightedSum := 0
	components := make([]ComponentScore, 0, len(Components))

	for _, c := range Components {
		v := Clamp(s.Get(c))
		w := a.Weights.For(c)
		weightedSum += v * w
		components = append(components, ComponentScore{
			Name:         c,
			Score:        v,
			Weight:       w,
			Contribution: roundDiv(v*w, 100),
		})
	}

	overall := roundDiv(weightedSum, 100)

	return &Breakdown{
		OverallScore: overall,
		Grade:        numericToGrade(overall),
		WeightedSum:  weightedSum,
		Components:   components,
		Timestamp:    a.Now(),
	}
}

// Compute builds a Breakdown using DefaultWeights.
func Compute(s Scores) *Breakdown {
	return NewAggregator(DefaultWeights).Compute(s)
}

// Grade converts a 0-100 score to a letter grade.
func Grade(score int) string {
	return numericToGrade(score)
}

// numericToGrade converts a 0-100 score to a letter grade.
func numericToGrade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// roundDiv divides non-negative n by d rounding half up.
func roundDiv(n, d int) int {
	return (n + d/2) / d
}
