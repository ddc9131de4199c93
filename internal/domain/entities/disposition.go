package entities

import "strings"

// Disposition is the CRM's classification of a call attempt
type Disposition struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Outcome Outcome `json:"outcome"`
}

// connectedPrefix marks disposition labels that count as a live conversation
const connectedPrefix = "Connected"

// UnknownDisposition is used for GUIDs missing from the lookup table
var UnknownDisposition = Disposition{Label: "Other", Outcome: OutcomeOther}

// dispositions maps HubSpot call disposition GUIDs to a label and outcome
var dispositions = map[string]Disposition{
	"f240bbac-87c9-4f6e-bf70-924b57d47db7": {Label: "Connected", Outcome: OutcomeWarmLead},
	"73a0d17f-1163-4015-bdd5-ec830791da20": {Label: "No answer", Outcome: OutcomeNoAnswer},
	"b2cf5968-551e-4856-9783-52b3da59a7d0": {Label: "Left voicemail", Outcome: OutcomeVoicemail},
	"a4c4c377-d246-4b32-a13b-75a56a4cd0ff": {Label: "Left live message", Outcome: OutcomeCallback},
	"9d9162e7-6cf3-4944-bf63-4dff82258764": {Label: "Busy", Outcome: OutcomeNoAnswer},
	"17b47fee-58de-441e-a44c-c6300d46f273": {Label: "Wrong number", Outcome: OutcomeWrongNumber},
}

// LookupDisposition resolves a disposition GUID. The second return value is false
// when the GUID is unknown, in which case UnknownDisposition is returned.
func LookupDisposition(id string) (Disposition, bool) {
	id = strings.TrimSpace(strings.ToLower(id))
	d, ok := dispositions[id]
	if !ok {
		u := UnknownDisposition
		u.ID = id
		return u, false
	}
	d.ID = id
	return d, true
}

// IsConnectedLabel reports whether a disposition label counts as a connected call
func IsConnectedLabel(label string) bool {
	return strings.HasPrefix(strings.TrimSpace(label), connectedPrefix)
}
