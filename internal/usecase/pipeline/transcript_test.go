package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/johnquangdev/call-coach/pkg/ai"
)

const crmTranscriptBody = `<p>Rep: Hi, this is Alex from Acme, did I catch you at a bad time?</p>
<p>Prospect: I have a minute, what is this about?</p>
<p>Rep: We help finance teams close their books faster, I noticed you are hiring two accountants.</p>
<p>Prospect: That&#39;s true, we are stretched this quarter.</p>
<p>Rep: Would a 20 minute walkthrough on Thursday make sense?</p>`

func TestStripHTML(t *testing.T) {
	got := StripHTML("<div>Hello&nbsp;there<br/>second <b>line</b></div>")
	assert.Equal(t, "Hello there\nsecond line", got)
}

func TestLooksLikeTranscript(t *testing.T) {
	assert.True(t, LooksLikeTranscript(crmTranscriptBody))

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"short note", "Left voicemail, try again Tuesday"},
		{"long note without speakers", strings.Repeat("Prospect was busy and asked for an email with pricing details. ", 5)},
		{"one speaker", "Rep: " + strings.Repeat("talking ", 40) + "\nmore\nlines"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, LooksLikeTranscript(tt.body))
		})
	}
}

func TestFormatUtterances_MergesAndLabelsSpeakers(t *testing.T) {
	got := FormatUtterances([]ai.Utterance{
		{Speaker: "B", Text: "Hello?"},
		{Speaker: "A", Text: "Hi, it's Alex."},
		{Speaker: "A", Text: "Got a minute?"},
		{Speaker: "B", Text: " "},
		{Speaker: "B", Text: "Sure."},
		{Speaker: "C", Text: "Sorry, wrong line."},
	})

	assert.Equal(t, "Speaker 1: Hello?\n\n"+
		"Speaker 2: Hi, it's Alex. Got a minute?\n\n"+
		"Speaker 1: Sure.\n\n"+
		"Speaker 3: Sorry, wrong line.", got)
}

func TestTranscriptText_FallsBackToFlatText(t *testing.T) {
	assert.Equal(t, "", TranscriptText(nil))
	assert.Equal(t, "plain text", TranscriptText(&ai.DiarizedTranscript{Text: "  plain text "}))
	assert.Equal(t, "Speaker 1: hi", TranscriptText(&ai.DiarizedTranscript{
		Utterances: []ai.Utterance{{Speaker: "A", Text: "hi"}},
		Text:       "hi",
	}))
}
