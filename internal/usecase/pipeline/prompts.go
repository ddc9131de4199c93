package pipeline

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
)

// maxPromptTranscriptChars keeps long calls inside the model context
const maxPromptTranscriptChars = 60000

// truncateUTF8 cuts s to at most n bytes without splitting a character
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

const scoreSystemPrompt = `You are a sales coach reviewing cold calls made by sales development reps.
You score calls strictly against the rubric you are given and answer with JSON only.`

const scoreRubric = `Score the call on each rubric area from 0 to 10. Use null when the area did not
come up on this call (for example gatekeeper when the prospect answered directly). Null is not zero.

Rubric areas:
- gatekeeper: getting past the receptionist or assistant
- opener: first 15 seconds, permission and pattern interrupt
- personalization: research and relevance to the prospect
- valueProp: clarity of the value proposition
- discovery: quality of questions and listening
- objectionHandling: acknowledging and reframing objections
- tonality: pace, confidence and warmth
- closing: asking for the meeting
- nextSteps: concrete agreed follow-up

Return exactly this JSON shape:
{
  "outcome": "demo | warm_lead | callback | not_interested | gatekeeper | voicemail | no_answer | wrong_number | other",
  "gatekeeper_score": number or null,
  "opener_score": number or null,
  "personalization_score": number or null,
  "value_prop_score": number or null,
  "discovery_score": number or null,
  "objection_handling_score": number or null,
  "tonality_score": number or null,
  "closing_score": number or null,
  "next_steps_score": number or null,
  "overall_score": number,
  "insight": "one sentence on what decided the call",
  "key_moment": "the single most important moment, quoted if possible",
  "improvement": "the one change that would most improve the next call",
  "follow_up": {"title": "short title", "question": "a question to ask the prospect next time"},
  "talk_time_pct": number or null,
  "talk_speed_wpm": number or null,
  "longest_monologue_sec": number or null,
  "longest_story_sec": number or null,
  "patience_sec": number or null,
  "area_breakdown": {
    "<area>": {"score": number, "why": "...", "what_went_well": "...", "what_to_improve": "...", "try_next": "..."}
  }
}

Every area with a non-null score must have an area_breakdown entry keyed by the area name above.`

// BuildScorePrompt renders the rubric prompt for one call
func BuildScorePrompt(call *entities.Call) string {
	var b strings.Builder
	b.WriteString(scoreRubric)
	b.WriteString("\n\nCall details:\n")
	fmt.Fprintf(&b, "- Company: %s\n", call.CompanyName())
	fmt.Fprintf(&b, "- Prospect: %s\n", call.ProspectDisplayName())
	fmt.Fprintf(&b, "- Date: %s\n", call.CallDate.Format("2006-01-02"))
	if call.DurationMs > 0 {
		fmt.Fprintf(&b, "- Duration: %s\n", (time.Duration(call.DurationMs) * time.Millisecond).Round(time.Second))
	}
	if call.DispositionLabel != nil {
		fmt.Fprintf(&b, "- CRM disposition: %s\n", *call.DispositionLabel)
	}

	transcript := call.TranscriptText()
	if len(transcript) > maxPromptTranscriptChars {
		transcript = truncateUTF8(transcript, maxPromptTranscriptChars) + "\n[transcript truncated]"
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript)
	return b.String()
}

const dailyFocusSystemPrompt = `You are a sales coach writing one daily focus for a sales development rep. Answer with JSON only.`

// callSummary is the compact per-call digest sent to the focus prompts
type callSummary struct {
	Score       *float64             `json:"score"`
	Insight     string               `json:"insight"`
	WeakAreas   []entities.AreaScore `json:"weak_areas"`
	Improvement string               `json:"improvement"`
}

func summarizeAnalyses(analyses []*entities.CallAnalysis) []callSummary {
	out := make([]callSummary, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, callSummary{
			Score:       a.OverallScore,
			Insight:     a.Insight,
			WeakAreas:   a.SkillScores.WeakAreas(weakAreaThreshold, maxWeakAreas),
			Improvement: a.Improvement,
		})
	}
	return out
}

// BuildDailyFocusPrompt asks for one instruction sentence from a day's calls
func BuildDailyFocusPrompt(sdrName string, date time.Time, summaries []callSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rep: %s\nDate: %s\nCalls analyzed: %d\n\n", sdrName, date.Format("2006-01-02"), len(summaries))
	for i, s := range summaries {
		fmt.Fprintf(&b, "Call %d: score %s. %s", i+1, formatScorePtr(s.Score), s.Insight)
		if len(s.WeakAreas) > 0 {
			parts := make([]string, 0, len(s.WeakAreas))
			for _, w := range s.WeakAreas {
				parts = append(parts, fmt.Sprintf("%s %.1f", w.Area.Label(), w.Score))
			}
			fmt.Fprintf(&b, " Weak areas: %s.", strings.Join(parts, ", "))
		}
		if s.Improvement != "" {
			fmt.Fprintf(&b, " Improvement: %s", s.Improvement)
		}
		b.WriteString("\n")
	}
	b.WriteString(`
Find the pattern across these calls and write ONE instruction for tomorrow.
The instruction must be at most 25 words, actionable, and framed as "do X" rather than "don't Y".
Return JSON: {"instruction": "...", "pattern": "the pattern you saw"}`)
	return b.String()
}

const weekFocusSystemPrompt = `You are a sales coach writing a weekly practice card for one skill. Answer with JSON only.`

// BuildWeekFocusPrompt asks for a coaching card on the week's weakest area
func BuildWeekFocusPrompt(sdrName string, area entities.SkillArea, score float64, improvements []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rep: %s\nWeakest area this week: %s (average %.1f/10)\n", sdrName, area.Label(), score)
	if len(improvements) > 0 {
		b.WriteString("Improvement notes from this week's calls:\n")
		for _, imp := range improvements {
			fmt.Fprintf(&b, "- %s\n", imp)
		}
	}
	b.WriteString(`
Write a practice card for this area.
Return JSON: {"title": "...", "triggers": ["when this happens..."], "do": ["..."], "dont": ["..."], "example": "a short example line the rep can say"}`)
	return b.String()
}

func formatScorePtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *v)
}
