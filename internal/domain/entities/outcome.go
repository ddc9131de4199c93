package entities

import "strings"

// Outcome classifies how a call ended
type Outcome string

const (
	OutcomeDemo          Outcome = "demo"
	OutcomeWarmLead      Outcome = "warm_lead"
	OutcomeCallback      Outcome = "callback"
	OutcomeNotInterested Outcome = "not_interested"
	OutcomeGatekeeper    Outcome = "gatekeeper"
	OutcomeVoicemail     Outcome = "voicemail"
	OutcomeNoAnswer      Outcome = "no_answer"
	OutcomeWrongNumber   Outcome = "wrong_number"
	OutcomeOther         Outcome = "other"
)

// IsValid checks if the outcome is one of the known values
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeDemo, OutcomeWarmLead, OutcomeCallback, OutcomeNotInterested,
		OutcomeGatekeeper, OutcomeVoicemail, OutcomeNoAnswer, OutcomeWrongNumber, OutcomeOther:
		return true
	}
	return false
}

// Label returns the disposition label recorded for calls ingested with this outcome.
// Connected outcomes carry the "Connected" prefix used by daily stats.
func (o Outcome) Label() string {
	switch o {
	case OutcomeDemo:
		return "Connected: Demo booked"
	case OutcomeWarmLead:
		return "Connected"
	case OutcomeCallback:
		return "Connected: Callback requested"
	case OutcomeNotInterested:
		return "Connected: Not interested"
	case OutcomeGatekeeper:
		return "Gatekeeper"
	case OutcomeVoicemail:
		return "Left voicemail"
	case OutcomeNoAnswer:
		return "No answer"
	case OutcomeWrongNumber:
		return "Wrong number"
	default:
		return "Other"
	}
}

// outcomeKeywords is checked in order; more specific phrases come first
// ("not interested" must win over "interested").
var outcomeKeywords = []struct {
	keyword string
	outcome Outcome
}{
	{"not interested", OutcomeNotInterested},
	{"not a fit", OutcomeNotInterested},
	{"wrong number", OutcomeWrongNumber},
	{"voicemail", OutcomeVoicemail},
	{"voice mail", OutcomeVoicemail},
	{"no answer", OutcomeNoAnswer},
	{"busy", OutcomeNoAnswer},
	{"gatekeeper", OutcomeGatekeeper},
	{"receptionist", OutcomeGatekeeper},
	{"demo", OutcomeDemo},
	{"meeting booked", OutcomeDemo},
	{"meeting scheduled", OutcomeDemo},
	{"call back", OutcomeCallback},
	{"callback", OutcomeCallback},
	{"call-back", OutcomeCallback},
	{"warm", OutcomeWarmLead},
	{"interested", OutcomeWarmLead},
	{"connected", OutcomeWarmLead},
}

// ParseOutcome normalizes free-text outcome labels (e.g. "Demo Booked",
// "Left Voicemail", "not_interested") into an Outcome. Unrecognized text maps to OutcomeOther.
func ParseOutcome(text string) Outcome {
	norm := strings.ToLower(strings.TrimSpace(text))
	if norm == "" {
		return OutcomeOther
	}
	if o := Outcome(norm); o.IsValid() {
		return o
	}
	norm = strings.ReplaceAll(norm, "_", " ")
	for _, kw := range outcomeKeywords {
		if strings.Contains(norm, kw.keyword) {
			return kw.outcome
		}
	}
	return OutcomeOther
}
