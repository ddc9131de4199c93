package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
)

// ScoreResponse is the JSON object the scoring prompt asks for
type ScoreResponse struct {
	Outcome string `json:"outcome"`

	entities.SkillScores
	OverallScore *float64 `json:"overall_score"`

	Insight     string            `json:"insight"`
	KeyMoment   string            `json:"key_moment"`
	Improvement string            `json:"improvement"`
	FollowUp    entities.FollowUp `json:"follow_up"`

	entities.ConversationMetrics

	AreaBreakdown map[string]entities.BreakdownEntry `json:"area_breakdown"`
}

// DailyFocusResponse is the JSON object the daily focus prompt asks for
type DailyFocusResponse struct {
	Instruction string `json:"instruction"`
	Pattern     string `json:"pattern"`
}

// extractJSON strips markdown fences and any prose around the outermost object
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

// ParseScoreResponse decodes a scoring reply. Wrong types, a missing outcome
// or a reply with no scores at all are rejected.
func ParseScoreResponse(raw string) (*ScoreResponse, error) {
	var resp ScoreResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidScoreResponse, err)
	}

	if strings.TrimSpace(resp.Outcome) == "" {
		return nil, fmt.Errorf("%w: missing outcome", entities.ErrInvalidScoreResponse)
	}
	if len(resp.SkillScores.Scored()) == 0 && resp.OverallScore == nil {
		return nil, fmt.Errorf("%w: no scores", entities.ErrInvalidScoreResponse)
	}

	resp.SkillScores.Clamp()
	if resp.OverallScore == nil {
		resp.OverallScore = meanScore(resp.SkillScores)
	} else {
		v := clampScore(*resp.OverallScore)
		resp.OverallScore = &v
	}
	return &resp, nil
}

// Breakdown returns the reply's breakdown keyed by rubric area. Keys written as
// column names ("value_prop") are accepted; unknown keys are dropped. Entries
// without a score take the area's score.
func (r *ScoreResponse) Breakdown() entities.AreaBreakdown {
	out := make(entities.AreaBreakdown, len(r.AreaBreakdown))
	for key, entry := range r.AreaBreakdown {
		area, ok := normalizeArea(key)
		if !ok {
			continue
		}
		if entry.Score == nil {
			entry.Score = r.SkillScores.Get(area)
		}
		out[area] = entry
	}
	return out
}

// ToAnalysis builds the analysis row for call, with a complete breakdown
func (r *ScoreResponse) ToAnalysis(call *entities.Call) (*entities.CallAnalysis, []entities.SkillArea) {
	a := entities.NewCallAnalysis(call)
	a.Outcome = entities.ParseOutcome(r.Outcome)
	a.SkillScores = r.SkillScores
	a.OverallScore = r.OverallScore
	a.Insight = strings.TrimSpace(r.Insight)
	a.KeyMoment = strings.TrimSpace(r.KeyMoment)
	a.Improvement = strings.TrimSpace(r.Improvement)
	a.SetFollowUp(r.FollowUp)
	a.ConversationMetrics = r.ConversationMetrics

	breakdown, filled := entities.CompleteBreakdown(r.SkillScores, r.Breakdown())
	a.SetBreakdown(breakdown)
	return a, filled
}

// ParseDailyFocus decodes a daily focus reply
func ParseDailyFocus(raw string) (*DailyFocusResponse, error) {
	var resp DailyFocusResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse daily focus: %w", err)
	}
	resp.Instruction = strings.TrimSpace(resp.Instruction)
	if resp.Instruction == "" {
		return nil, fmt.Errorf("daily focus has no instruction")
	}
	return &resp, nil
}

// ParseWeekFocus decodes a weekly focus reply
func ParseWeekFocus(raw string) (*entities.WeekFocus, error) {
	var resp entities.WeekFocus
	if err := json.Unmarshal([]byte(extractJSON(raw)), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse week focus: %w", err)
	}
	if strings.TrimSpace(resp.Title) == "" {
		return nil, fmt.Errorf("week focus has no title")
	}
	return &resp, nil
}

func normalizeArea(key string) (entities.SkillArea, bool) {
	k := strings.ToLower(strings.ReplaceAll(strings.TrimSuffix(strings.TrimSpace(key), "_score"), "_", ""))
	for _, area := range entities.SkillAreas {
		if strings.ToLower(string(area)) == k {
			return area, true
		}
	}
	return "", false
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 10:
		return 10
	}
	return v
}

// meanScore averages the scored areas, nil when none are scored
func meanScore(s entities.SkillScores) *float64 {
	var sum float64
	n := 0
	for _, area := range s.Scored() {
		sum += *s.Get(area)
		n++
	}
	if n == 0 {
		return nil
	}
	v := round1(sum / float64(n))
	return &v
}
