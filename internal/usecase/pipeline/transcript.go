package pipeline

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/johnquangdev/call-coach/pkg/ai"
)

const (
	minTranscriptChars        = 200
	minTranscriptLines        = 3
	minTranscriptSpeakerLines = 2
)

var (
	htmlBreak   = regexp.MustCompile(`(?i)<\s*(br\s*/?|/p|/div|/li)\s*>`)
	htmlTag     = regexp.MustCompile(`(?s)<[^>]*>`)
	speakerLine = regexp.MustCompile(`^[\p{L}][\p{L}\p{N} .'()-]{0,40}:\s*\S`)
)

// StripHTML turns a CRM rich-text body into plain lines
func StripHTML(body string) string {
	s := htmlBreak.ReplaceAllString(body, "\n")
	s = htmlTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.TrimSpace(line))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// LooksLikeTranscript decides whether a CRM call body is a speaker-labeled
// transcript rather than a short note.
func LooksLikeTranscript(body string) bool {
	text := StripHTML(body)
	if len(text) < minTranscriptChars {
		return false
	}

	lines, speakers := 0, 0
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		lines++
		if speakerLine.MatchString(line) {
			speakers++
		}
	}
	return lines >= minTranscriptLines && speakers >= minTranscriptSpeakerLines
}

// FormatUtterances merges consecutive utterances of the same speaker and
// labels speakers "Speaker 1", "Speaker 2"... in order of first appearance.
func FormatUtterances(utterances []ai.Utterance) string {
	labels := make(map[string]int)
	var blocks []string
	lastSpeaker := ""
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			blocks = append(blocks, fmt.Sprintf("Speaker %d: %s", labels[lastSpeaker], current.String()))
			current.Reset()
		}
	}

	for _, u := range utterances {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}
		if _, seen := labels[u.Speaker]; !seen {
			labels[u.Speaker] = len(labels) + 1
		}
		if u.Speaker != lastSpeaker || current.Len() == 0 {
			flush()
			lastSpeaker = u.Speaker
		} else {
			current.WriteByte(' ')
		}
		current.WriteString(text)
	}
	flush()

	return strings.Join(blocks, "\n\n")
}

// TranscriptText picks the diarized rendering, falling back to the flat text
func TranscriptText(t *ai.DiarizedTranscript) string {
	if t == nil {
		return ""
	}
	if text := FormatUtterances(t.Utterances); text != "" {
		return text
	}
	return strings.TrimSpace(t.Text)
}
