package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallSource records which ingestion path first created the call
type CallSource string

const (
	CallSourceCRM     CallSource = "crm"
	CallSourceWebhook CallSource = "webhook"
)

// UnknownCompany is the display value for calls without a resolved company
const UnknownCompany = "Unknown Company"

// Call is one external call record. ExternalID is the dedup key.
type Call struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ExternalID    string     `json:"external_id" gorm:"type:varchar(128);uniqueIndex;not null"`
	SDRID         uuid.UUID  `json:"sdr_id" gorm:"column:sdr_id;type:uuid;not null;index"`
	Company       *string    `json:"company,omitempty" gorm:"type:varchar(255)"`
	ProspectName  *string    `json:"prospect_name,omitempty" gorm:"type:varchar(255)"`
	CallDate      time.Time  `json:"call_date" gorm:"type:date;not null;index"`
	CallTimestamp *time.Time `json:"call_timestamp,omitempty" gorm:"type:timestamptz"`
	DurationMs    int64      `json:"duration_ms" gorm:"not null;default:0"`

	DispositionID      *string  `json:"disposition_id,omitempty" gorm:"type:varchar(64)"`
	DispositionLabel   *string  `json:"disposition_label,omitempty" gorm:"type:varchar(100)"`
	DispositionOutcome *Outcome `json:"disposition_outcome,omitempty" gorm:"type:varchar(32)"`
	Connected          bool     `json:"connected" gorm:"not null;default:false"`

	Transcript    *string    `json:"transcript,omitempty" gorm:"type:text"`
	HasTranscript bool       `json:"has_transcript" gorm:"not null;default:false"`
	RecordingURL  *string    `json:"recording_url,omitempty" gorm:"type:text"`
	Source        CallSource `json:"source" gorm:"type:varchar(20);not null;default:'crm'"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Call) TableName() string {
	return "calls"
}

// AfterFind clears placeholder strings written by older ingestion code so the
// merge rule only ever has to check for nil.
func (c *Call) AfterFind(tx *gorm.DB) error {
	c.Company = NormalizeText(c.Company)
	c.ProspectName = NormalizeText(c.ProspectName)
	c.Transcript = NormalizeText(c.Transcript)
	c.RecordingURL = NormalizeText(c.RecordingURL)
	return nil
}

// CompanyName returns the company for display, falling back to UnknownCompany
func (c *Call) CompanyName() string {
	if c.Company == nil {
		return UnknownCompany
	}
	return *c.Company
}

// ProspectDisplayName returns the prospect name or "Unknown"
func (c *Call) ProspectDisplayName() string {
	if c.ProspectName == nil {
		return "Unknown"
	}
	return *c.ProspectName
}

// TranscriptText returns the transcript or "" when none is stored
func (c *Call) TranscriptText() string {
	if c.Transcript == nil {
		return ""
	}
	return *c.Transcript
}

// CallUpsert carries the fields an ingestion source knows about a call.
// Nil pointers mean "unknown"; they never clear stored values.
type CallUpsert struct {
	ExternalID    string
	SDRID         uuid.UUID
	Company       *string
	ProspectName  *string
	CallDate      time.Time
	CallTimestamp *time.Time
	DurationMs    *int64
	Disposition   *Disposition
	Transcript    *string
	RecordingURL  *string
	Source        CallSource
}

// Normalize trims text fields and turns placeholders into nil
func (u *CallUpsert) Normalize() {
	u.ExternalID = strings.TrimSpace(u.ExternalID)
	u.Company = NormalizeText(u.Company)
	u.ProspectName = NormalizeText(u.ProspectName)
	u.Transcript = NormalizeText(u.Transcript)
	u.RecordingURL = NormalizeText(u.RecordingURL)
	if u.Source == "" {
		u.Source = CallSourceCRM
	}
}

// NewCall builds a new Call row from an upsert
func NewCall(u CallUpsert) *Call {
	u.Normalize()
	c := &Call{
		ID:            uuid.New(),
		ExternalID:    u.ExternalID,
		SDRID:         u.SDRID,
		Company:       u.Company,
		ProspectName:  u.ProspectName,
		CallDate:      DateOnly(u.CallDate),
		CallTimestamp: u.CallTimestamp,
		RecordingURL:  u.RecordingURL,
		Source:        u.Source,
	}
	if u.DurationMs != nil {
		c.DurationMs = *u.DurationMs
	}
	if u.Disposition != nil {
		c.setDisposition(*u.Disposition)
	}
	if u.Transcript != nil {
		c.Transcript = u.Transcript
		c.HasTranscript = true
	}
	return c
}

// MergeFrom fills fields that are still unset on c from u. A stored value is
// never overwritten. Returns true when anything changed.
func (c *Call) MergeFrom(u CallUpsert) bool {
	u.Normalize()
	changed := false

	fill := func(dst **string, src *string) {
		if *dst == nil && src != nil {
			v := *src
			*dst = &v
			changed = true
		}
	}
	fill(&c.Company, u.Company)
	fill(&c.ProspectName, u.ProspectName)
	fill(&c.RecordingURL, u.RecordingURL)

	if c.Transcript == nil && u.Transcript != nil {
		v := *u.Transcript
		c.Transcript = &v
		c.HasTranscript = true
		changed = true
	}
	if c.CallTimestamp == nil && u.CallTimestamp != nil {
		ts := *u.CallTimestamp
		c.CallTimestamp = &ts
		changed = true
	}
	if c.DurationMs == 0 && u.DurationMs != nil && *u.DurationMs > 0 {
		c.DurationMs = *u.DurationMs
		changed = true
	}
	if c.DispositionLabel == nil && u.Disposition != nil {
		c.setDisposition(*u.Disposition)
		changed = true
	}
	return changed
}

func (c *Call) setDisposition(d Disposition) {
	if d.ID != "" {
		id := d.ID
		c.DispositionID = &id
	}
	label := d.Label
	outcome := d.Outcome
	c.DispositionLabel = &label
	c.DispositionOutcome = &outcome
	c.Connected = IsConnectedLabel(label)
}

// placeholders are values older ingestion code stored in place of NULL
var placeholders = map[string]struct{}{
	"":                {},
	"unknown":         {},
	"unknown company": {},
	"n/a":             {},
	"null":            {},
}

// NormalizeText trims s and returns nil for empty or placeholder values
func NormalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if _, ok := placeholders[strings.ToLower(v)]; ok {
		return nil
	}
	return &v
}

// DateOnly truncates t to its UTC calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
