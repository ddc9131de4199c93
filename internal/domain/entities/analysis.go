package entities

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BreakdownEntry is the per-area coaching detail returned with a score
type BreakdownEntry struct {
	Score         *float64 `json:"score"`
	Why           string   `json:"why"`
	WhatWentWell  string   `json:"what_went_well"`
	WhatToImprove string   `json:"what_to_improve"`
	TryNext       string   `json:"try_next"`
}

// AreaBreakdown maps rubric areas to their breakdown entries
type AreaBreakdown map[SkillArea]BreakdownEntry

// Missing returns the scored areas without a breakdown entry, in rubric order
func (b AreaBreakdown) Missing(scores SkillScores) []SkillArea {
	missing := make([]SkillArea, 0)
	for _, area := range scores.Scored() {
		if _, ok := b[area]; !ok {
			missing = append(missing, area)
		}
	}
	return missing
}

// GenericBreakdownEntry builds the placeholder entry used when a scored area has no breakdown
func GenericBreakdownEntry(area SkillArea, score float64) BreakdownEntry {
	s := score
	return BreakdownEntry{
		Score:         &s,
		Why:           fmt.Sprintf("%s was scored %s/10 on this call.", area.Label(), formatScore(score)),
		WhatWentWell:  fmt.Sprintf("Review the call recording for moments where the %s landed.", area.Label()),
		WhatToImprove: fmt.Sprintf("Identify one specific moment where the %s could have been stronger.", area.Label()),
		TryNext:       fmt.Sprintf("Pick one %s technique from the playbook and use it on the next call.", area.Label()),
	}
}

// CompleteBreakdown returns a copy of b where every scored area has an entry.
// Missing entries are synthesized from the area's score. The second return
// value lists the areas that were filled in.
func CompleteBreakdown(scores SkillScores, b AreaBreakdown) (AreaBreakdown, []SkillArea) {
	out := make(AreaBreakdown, len(b)+len(SkillAreas))
	for area, entry := range b {
		if !area.IsValid() {
			continue
		}
		out[area] = entry
	}
	filled := make([]SkillArea, 0)
	for _, area := range scores.Scored() {
		if _, ok := out[area]; ok {
			continue
		}
		out[area] = GenericBreakdownEntry(area, *scores.Get(area))
		filled = append(filled, area)
	}
	return out, filled
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ConversationMetrics are the optional talk-pattern measurements
type ConversationMetrics struct {
	TalkTimePct         *float64 `json:"talk_time_pct" gorm:"column:talk_time_pct"`
	TalkSpeedWPM        *float64 `json:"talk_speed_wpm" gorm:"column:talk_speed_wpm"`
	LongestMonologueSec *float64 `json:"longest_monologue_sec" gorm:"column:longest_monologue_sec"`
	LongestStorySec     *float64 `json:"longest_story_sec" gorm:"column:longest_story_sec"`
	PatienceSec         *float64 `json:"patience_sec" gorm:"column:patience_sec"`
}

// CallAnalysis is the LLM scoring of one call. At most one row exists per call.
type CallAnalysis struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CallID       uuid.UUID `json:"call_id" gorm:"type:uuid;not null;uniqueIndex"`
	SDRID        uuid.UUID `json:"sdr_id" gorm:"column:sdr_id;type:uuid;not null;index"`
	AnalysisDate time.Time `json:"analysis_date" gorm:"type:date;not null;index"`
	Outcome      Outcome   `json:"outcome" gorm:"type:varchar(32);not null"`

	SkillScores  `gorm:"embedded"`
	OverallScore *float64 `json:"overall_score" gorm:"type:numeric(3,1)"`

	Insight     string                       `json:"insight" gorm:"type:text"`
	KeyMoment   string                       `json:"key_moment" gorm:"type:text"`
	Improvement string                       `json:"improvement" gorm:"type:text"`
	FollowUp    datatypes.JSONType[FollowUp] `json:"follow_up" gorm:"type:jsonb"`

	ConversationMetrics `gorm:"embedded"`

	AreaBreakdown datatypes.JSONType[AreaBreakdown] `json:"area_breakdown" gorm:"type:jsonb"`
	RawResponse   string                            `json:"-" gorm:"type:text"`
	Model         string                            `json:"model" gorm:"type:varchar(100)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (CallAnalysis) TableName() string {
	return "call_analyses"
}

// NewCallAnalysis creates an analysis for call dated on the call's own date
func NewCallAnalysis(call *Call) *CallAnalysis {
	return &CallAnalysis{
		ID:           uuid.New(),
		CallID:       call.ID,
		SDRID:        call.SDRID,
		AnalysisDate: DateOnly(call.CallDate),
		Outcome:      OutcomeOther,
	}
}

// Breakdown returns the stored breakdown map (never nil)
func (a *CallAnalysis) Breakdown() AreaBreakdown {
	b := a.AreaBreakdown.Data()
	if b == nil {
		return AreaBreakdown{}
	}
	return b
}

// SetBreakdown replaces the stored breakdown map
func (a *CallAnalysis) SetBreakdown(b AreaBreakdown) {
	a.AreaBreakdown = datatypes.NewJSONType(b)
}

// MissingBreakdown lists scored areas that lack a breakdown entry
func (a *CallAnalysis) MissingBreakdown() []SkillArea {
	return a.Breakdown().Missing(a.SkillScores)
}

// SetFollowUp replaces the stored follow-up
func (a *CallAnalysis) SetFollowUp(f FollowUp) {
	a.FollowUp = datatypes.NewJSONType(f)
}
