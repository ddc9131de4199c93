package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func TestNormalizeText(t *testing.T) {
	cases := map[string]*string{
		"":                nil,
		"   ":             nil,
		"Unknown":         nil,
		"unknown company": nil,
		"Unknown Company": nil,
		"N/A":             nil,
		" Acme Corp ":     strPtr("Acme Corp"),
	}
	for in, want := range cases {
		got := NormalizeText(strPtr(in))
		if want == nil {
			assert.Nil(t, got, "input %q", in)
			continue
		}
		require.NotNil(t, got, "input %q", in)
		assert.Equal(t, *want, *got)
	}
	assert.Nil(t, NormalizeText(nil))
}

func TestNewCall_FromUpsert(t *testing.T) {
	sdrID := uuid.New()
	ts := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	d, ok := LookupDisposition("f240bbac-87c9-4f6e-bf70-924b57d47db7")
	require.True(t, ok)

	call := NewCall(CallUpsert{
		ExternalID:    " 123 ",
		SDRID:         sdrID,
		Company:       strPtr("Unknown Company"),
		ProspectName:  strPtr("Dana Smith"),
		CallDate:      ts,
		CallTimestamp: &ts,
		DurationMs:    int64Ptr(272000),
		Disposition:   &d,
	})

	assert.Equal(t, "123", call.ExternalID)
	assert.Nil(t, call.Company)
	assert.Equal(t, UnknownCompany, call.CompanyName())
	assert.Equal(t, "Dana Smith", call.ProspectDisplayName())
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), call.CallDate)
	assert.Equal(t, int64(272000), call.DurationMs)
	require.NotNil(t, call.DispositionOutcome)
	assert.Equal(t, OutcomeWarmLead, *call.DispositionOutcome)
	assert.Equal(t, "Connected", *call.DispositionLabel)
	assert.True(t, call.Connected)
	assert.False(t, call.HasTranscript)
	assert.Equal(t, CallSourceCRM, call.Source)
}

func TestCallMergeFrom_FillsOnlyUnsetFields(t *testing.T) {
	call := &Call{
		ExternalID:   "ext-1",
		Company:      strPtr("Verified Co"),
		ProspectName: nil,
		DurationMs:   0,
	}

	changed := call.MergeFrom(CallUpsert{
		ExternalID:   "ext-1",
		Company:      strPtr("Cheaper Source Inc"),
		ProspectName: strPtr("Jordan Lee"),
		DurationMs:   int64Ptr(45000),
		RecordingURL: strPtr("https://example.com/rec.mp3"),
	})

	assert.True(t, changed)
	assert.Equal(t, "Verified Co", *call.Company)
	assert.Equal(t, "Jordan Lee", *call.ProspectName)
	assert.Equal(t, int64(45000), call.DurationMs)
	assert.Equal(t, "https://example.com/rec.mp3", *call.RecordingURL)
}

func TestCallMergeFrom_PlaceholderNeverOverwrites(t *testing.T) {
	call := &Call{Company: strPtr("Acme"), ProspectName: strPtr("Sam")}

	changed := call.MergeFrom(CallUpsert{
		Company:      strPtr("Unknown Company"),
		ProspectName: strPtr("Unknown"),
	})

	assert.False(t, changed)
	assert.Equal(t, "Acme", *call.Company)
	assert.Equal(t, "Sam", *call.ProspectName)
}

func TestCallMergeFrom_IsIdempotent(t *testing.T) {
	call := &Call{}
	u := CallUpsert{Company: strPtr("Acme"), Transcript: strPtr("Speaker 1: hi")}

	assert.True(t, call.MergeFrom(u))
	assert.False(t, call.MergeFrom(u))
	assert.True(t, call.HasTranscript)
}

func TestCallMergeFrom_KeepsExistingDisposition(t *testing.T) {
	first, _ := LookupDisposition("b2cf5968-551e-4856-9783-52b3da59a7d0")
	second, _ := LookupDisposition("f240bbac-87c9-4f6e-bf70-924b57d47db7")
	call := NewCall(CallUpsert{ExternalID: "x", Disposition: &first})

	assert.False(t, call.MergeFrom(CallUpsert{Disposition: &second}))
	assert.Equal(t, "Left voicemail", *call.DispositionLabel)
	assert.False(t, call.Connected)
}

func TestCallAfterFind_ClearsLegacyPlaceholders(t *testing.T) {
	call := &Call{Company: strPtr("Unknown Company"), ProspectName: strPtr("Unknown")}
	require.NoError(t, call.AfterFind(nil))
	assert.Nil(t, call.Company)
	assert.Nil(t, call.ProspectName)

	assert.True(t, call.MergeFrom(CallUpsert{Company: strPtr("Real Co")}))
	assert.Equal(t, "Real Co", call.CompanyName())
}
