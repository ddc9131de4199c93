package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FollowUpKind tags which shape a FollowUp holds
type FollowUpKind string

const (
	FollowUpNone     FollowUpKind = ""
	FollowUpText     FollowUpKind = "text"
	FollowUpQuestion FollowUpKind = "question"
)

const maxFollowUpTitle = 60

// FollowUp is the suggested next touch for a prospect. Older analyses store it
// as free text; newer ones carry a title and a question.
type FollowUp struct {
	kind     FollowUpKind
	text     string
	title    string
	question string
}

// NewFollowUpText creates a free text follow-up
func NewFollowUpText(text string) FollowUp {
	text = strings.TrimSpace(text)
	if text == "" {
		return FollowUp{}
	}
	return FollowUp{kind: FollowUpText, text: text}
}

// NewFollowUpQuestion creates a structured follow-up
func NewFollowUpQuestion(title, question string) FollowUp {
	title = strings.TrimSpace(title)
	question = strings.TrimSpace(question)
	if title == "" && question == "" {
		return FollowUp{}
	}
	return FollowUp{kind: FollowUpQuestion, title: title, question: question}
}

// Kind returns the variant tag
func (f FollowUp) Kind() FollowUpKind {
	return f.kind
}

// IsZero reports whether no follow-up was given
func (f FollowUp) IsZero() bool {
	return f.kind == FollowUpNone
}

// Title returns the follow-up title. When the variant has none, one is derived
// from the first sentence of the body.
func (f FollowUp) Title() string {
	switch f.kind {
	case FollowUpQuestion:
		if f.title != "" {
			return f.title
		}
		return deriveTitle(f.question)
	case FollowUpText:
		return deriveTitle(f.text)
	}
	return ""
}

// Body returns the follow-up text or question
func (f FollowUp) Body() string {
	switch f.kind {
	case FollowUpQuestion:
		return f.question
	case FollowUpText:
		return f.text
	}
	return ""
}

type followUpObject struct {
	Title    string `json:"title"`
	Question string `json:"question"`
}

// MarshalJSON writes text follow-ups as a string and structured ones as an object
func (f FollowUp) MarshalJSON() ([]byte, error) {
	switch f.kind {
	case FollowUpText:
		return json.Marshal(f.text)
	case FollowUpQuestion:
		return json.Marshal(followUpObject{Title: f.title, Question: f.question})
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts null, a string or a {title, question} object
func (f *FollowUp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = FollowUp{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = NewFollowUpText(s)
		return nil
	case '{':
		var obj followUpObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*f = NewFollowUpQuestion(obj.Title, obj.Question)
		return nil
	}
	return fmt.Errorf("follow_up must be a string or an object, got %s", string(data))
}

// deriveTitle takes the first sentence of s and shortens it to a word boundary
func deriveTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if idx := strings.IndexAny(s, ".?!\n"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	if len(s) <= maxFollowUpTitle {
		return s
	}
	cut := s[:maxFollowUpTitle-3]
	if sp := strings.LastIndex(cut, " "); sp > maxFollowUpTitle/2 {
		cut = cut[:sp]
	}
	return strings.TrimRight(cut, " ,;:-") + "..."
}
