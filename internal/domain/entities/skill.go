package entities

import (
	"math"
	"sort"
)

// SkillArea is one of the nine rubric areas a call is scored on
type SkillArea string

const (
	SkillGatekeeper        SkillArea = "gatekeeper"
	SkillOpener            SkillArea = "opener"
	SkillPersonalization   SkillArea = "personalization"
	SkillValueProp         SkillArea = "valueProp"
	SkillDiscovery         SkillArea = "discovery"
	SkillObjectionHandling SkillArea = "objectionHandling"
	SkillTonality          SkillArea = "tonality"
	SkillClosing           SkillArea = "closing"
	SkillNextSteps         SkillArea = "nextSteps"
)

// SkillAreas lists the rubric in its fixed order. The order doubles as the
// tie-break wherever two areas compare equal.
var SkillAreas = []SkillArea{
	SkillGatekeeper,
	SkillOpener,
	SkillPersonalization,
	SkillValueProp,
	SkillDiscovery,
	SkillObjectionHandling,
	SkillTonality,
	SkillClosing,
	SkillNextSteps,
}

var skillMeta = map[SkillArea]struct {
	label  string
	column string
}{
	SkillGatekeeper:        {"Gatekeeper", "gatekeeper_score"},
	SkillOpener:            {"Opener", "opener_score"},
	SkillPersonalization:   {"Personalization", "personalization_score"},
	SkillValueProp:         {"Value Prop", "value_prop_score"},
	SkillDiscovery:         {"Discovery", "discovery_score"},
	SkillObjectionHandling: {"Objection Handling", "objection_handling_score"},
	SkillTonality:          {"Tonality", "tonality_score"},
	SkillClosing:           {"Closing", "closing_score"},
	SkillNextSteps:         {"Next Steps", "next_steps_score"},
}

// IsValid checks if the area is part of the rubric
func (a SkillArea) IsValid() bool {
	_, ok := skillMeta[a]
	return ok
}

// Label returns the human readable area name
func (a SkillArea) Label() string {
	return skillMeta[a].label
}

// ScoreColumn returns the column (and JSON key) holding the area's score
func (a SkillArea) ScoreColumn() string {
	return skillMeta[a].column
}

// rubricIndex returns the position of a in SkillAreas
func (a SkillArea) rubricIndex() int {
	for i, area := range SkillAreas {
		if area == a {
			return i
		}
	}
	return len(SkillAreas)
}

// SkillScores holds the nine nullable area scores. Nil means the area did not
// apply to the call, which is different from a score of zero.
type SkillScores struct {
	Gatekeeper        *float64 `json:"gatekeeper_score" gorm:"column:gatekeeper_score;type:numeric(3,1)"`
	Opener            *float64 `json:"opener_score" gorm:"column:opener_score;type:numeric(3,1)"`
	Personalization   *float64 `json:"personalization_score" gorm:"column:personalization_score;type:numeric(3,1)"`
	ValueProp         *float64 `json:"value_prop_score" gorm:"column:value_prop_score;type:numeric(3,1)"`
	Discovery         *float64 `json:"discovery_score" gorm:"column:discovery_score;type:numeric(3,1)"`
	ObjectionHandling *float64 `json:"objection_handling_score" gorm:"column:objection_handling_score;type:numeric(3,1)"`
	Tonality          *float64 `json:"tonality_score" gorm:"column:tonality_score;type:numeric(3,1)"`
	Closing           *float64 `json:"closing_score" gorm:"column:closing_score;type:numeric(3,1)"`
	NextSteps         *float64 `json:"next_steps_score" gorm:"column:next_steps_score;type:numeric(3,1)"`
}

func (s *SkillScores) field(area SkillArea) **float64 {
	switch area {
	case SkillGatekeeper:
		return &s.Gatekeeper
	case SkillOpener:
		return &s.Opener
	case SkillPersonalization:
		return &s.Personalization
	case SkillValueProp:
		return &s.ValueProp
	case SkillDiscovery:
		return &s.Discovery
	case SkillObjectionHandling:
		return &s.ObjectionHandling
	case SkillTonality:
		return &s.Tonality
	case SkillClosing:
		return &s.Closing
	case SkillNextSteps:
		return &s.NextSteps
	}
	return nil
}

// Get returns the score for area, nil when not applicable
func (s SkillScores) Get(area SkillArea) *float64 {
	f := s.field(area)
	if f == nil {
		return nil
	}
	return *f
}

// Set stores a score for area. Out of range values are clamped to 0..10.
func (s *SkillScores) Set(area SkillArea, score *float64) {
	f := s.field(area)
	if f == nil {
		return
	}
	if score == nil {
		*f = nil
		return
	}
	v := math.Max(0, math.Min(10, *score))
	*f = &v
}

// Scored returns the areas with a non-nil score, in rubric order
func (s SkillScores) Scored() []SkillArea {
	out := make([]SkillArea, 0, len(SkillAreas))
	for _, area := range SkillAreas {
		if s.Get(area) != nil {
			out = append(out, area)
		}
	}
	return out
}

// Clamp forces every present score into 0..10
func (s *SkillScores) Clamp() {
	for _, area := range SkillAreas {
		s.Set(area, s.Get(area))
	}
}

// AreaScore pairs an area with a score
type AreaScore struct {
	Area  SkillArea `json:"area"`
	Score float64   `json:"score"`
}

// WeakAreas returns scored areas below threshold, weakest first, at most limit entries
func (s SkillScores) WeakAreas(threshold float64, limit int) []AreaScore {
	weak := make([]AreaScore, 0)
	for _, area := range SkillAreas {
		if v := s.Get(area); v != nil && *v < threshold {
			weak = append(weak, AreaScore{Area: area, Score: *v})
		}
	}
	SortAreaScores(weak)
	if limit > 0 && len(weak) > limit {
		weak = weak[:limit]
	}
	return weak
}

// SortAreaScores orders scores ascending, ties broken by rubric order
func SortAreaScores(scores []AreaScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score < scores[j].Score
		}
		return scores[i].Area.rubricIndex() < scores[j].Area.rubricIndex()
	})
}
