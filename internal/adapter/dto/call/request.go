package call

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/johnquangdev/call-coach/internal/usecase/pipeline"
)

// FlexString accepts a JSON string or number. Dialers send durations and
// timestamps either way.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// IngestCallRequest is one call pushed by the dialer
type IngestCallRequest struct {
	ExternalID   FlexString `json:"call_id" validate:"required,notblank,max=128"`
	OwnerID      FlexString `json:"owner_id" validate:"required_without=SDRSlug,max=64"`
	SDRSlug      string     `json:"sdr" validate:"required_without=OwnerID,max=64"`
	Company      *string    `json:"company,omitempty" validate:"omitempty,max=255"`
	ProspectName *string    `json:"prospect_name,omitempty" validate:"omitempty,max=255"`
	Outcome      string     `json:"outcome,omitempty" validate:"max=128"`
	Duration     FlexString `json:"duration,omitempty" validate:"max=32"`
	CalledAt     FlexString `json:"called_at,omitempty" validate:"max=64"`
	Transcript   *string    `json:"transcript,omitempty"`
	RecordingURL *string    `json:"recording_url,omitempty" validate:"omitempty,url"`
}

// ToIngest converts the request into the pipeline input
func (r IngestCallRequest) ToIngest() pipeline.CallIngest {
	return pipeline.CallIngest{
		ExternalID:   strings.TrimSpace(string(r.ExternalID)),
		OwnerID:      strings.TrimSpace(string(r.OwnerID)),
		SDRSlug:      strings.TrimSpace(r.SDRSlug),
		Company:      r.Company,
		ProspectName: r.ProspectName,
		Transcript:   r.Transcript,
		RecordingURL: r.RecordingURL,
		Outcome:      r.Outcome,
		Duration:     string(r.Duration),
		CalledAt:     string(r.CalledAt),
	}
}
