package pipeline

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/pkg/isoweek"
)

const (
	// Scored areas below this count as weak in the focus prompts
	weakAreaThreshold = 6.0
	maxWeakAreas      = 5

	longCallMs = 5 * 60 * 1000
)

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ComputeDailyStats counts one rep's dials for a day
func ComputeDailyStats(sdrID uuid.UUID, date time.Time, calls []*entities.Call) *entities.DailyStats {
	stats := &entities.DailyStats{
		SDRID:      sdrID,
		StatDate:   entities.DateOnly(date),
		TotalDials: len(calls),
	}
	for _, c := range calls {
		if c.DispositionLabel != nil && entities.IsConnectedLabel(*c.DispositionLabel) {
			stats.ConnectedCalls++
		}
		if c.DurationMs >= longCallMs {
			stats.CallsOver5Min++
		}
	}
	if stats.TotalDials > 0 {
		stats.ConnectionRate = round1(float64(stats.ConnectedCalls) / float64(stats.TotalDials) * 100)
	}
	return stats
}

// AverageScores averages each area over the analyses that scored it. Areas
// nobody scored stay nil.
func AverageScores(analyses []*entities.CallAnalysis) entities.SkillScores {
	var avg entities.SkillScores
	for _, area := range entities.SkillAreas {
		var sum float64
		n := 0
		for _, a := range analyses {
			if v := a.SkillScores.Get(area); v != nil {
				sum += *v
				n++
			}
		}
		if n > 0 {
			v := round1(sum / float64(n))
			avg.Set(area, &v)
		}
	}
	return avg
}

// OverallAverage averages the overall scores that are present
func OverallAverage(analyses []*entities.CallAnalysis) *float64 {
	var sum float64
	n := 0
	for _, a := range analyses {
		if a.OverallScore != nil {
			sum += *a.OverallScore
			n++
		}
	}
	if n == 0 {
		return nil
	}
	v := round1(sum / float64(n))
	return &v
}

// WeakestArea returns the lowest averaged area. Ties go to the earlier rubric area.
func WeakestArea(avg entities.SkillScores) (entities.SkillArea, float64, bool) {
	var (
		weakest entities.SkillArea
		low     float64
		found   bool
	)
	for _, area := range entities.SkillAreas {
		v := avg.Get(area)
		if v == nil {
			continue
		}
		if !found || *v < low {
			weakest, low, found = area, *v, true
		}
	}
	return weakest, low, found
}

// OverallDelta is current minus previous, nil unless both are known
func OverallDelta(current *float64, previous *entities.WeeklySummary) *float64 {
	if current == nil || previous == nil || previous.OverallAverage == nil {
		return nil
	}
	v := round1(*current - *previous.OverallAverage)
	return &v
}

// BuildWeeklySummary rolls up a rep's analyses for the business days of week.
// Analyses dated outside Monday to Friday are ignored. Returns nil when none remain.
func BuildWeeklySummary(sdrID uuid.UUID, week isoweek.Week, analyses []*entities.CallAnalysis) *entities.WeeklySummary {
	from, to := week.BusinessBounds()

	inWeek := make([]*entities.CallAnalysis, 0, len(analyses))
	for _, a := range analyses {
		d := entities.DateOnly(a.AnalysisDate)
		if d.Before(from) || d.After(to) || !isoweek.IsBusinessDay(d) {
			continue
		}
		inWeek = append(inWeek, a)
	}
	if len(inWeek) == 0 {
		return nil
	}

	summary := &entities.WeeklySummary{
		SDRID:         sdrID,
		WeekNumber:    week.Week,
		Year:          week.Year,
		WeekStart:     from,
		WeekEnd:       to,
		CallsReviewed: len(inWeek),
	}
	for _, a := range inWeek {
		if a.Outcome == entities.OutcomeDemo {
			summary.DemosBooked++
		}
	}
	summary.SkillScores = AverageScores(inWeek)
	summary.OverallAverage = OverallAverage(inWeek)
	if area, score, ok := WeakestArea(summary.SkillScores); ok {
		summary.FocusAreaName = &area
		summary.FocusAreaScore = &score
	}
	return summary
}

// improvementNotes collects the distinct non-empty improvement notes of the
// analyses, in order
func improvementNotes(analyses []*entities.CallAnalysis, limit int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	for _, a := range analyses {
		note := strings.TrimSpace(a.Improvement)
		if note == "" {
			continue
		}
		if _, dup := seen[note]; dup {
			continue
		}
		seen[note] = struct{}{}
		out = append(out, note)
		if len(out) == limit {
			break
		}
	}
	return out
}
