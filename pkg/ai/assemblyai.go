package ai

import (
	"context"
	"fmt"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/johnquangdev/call-coach/pkg/config"
)

// Utterance is one diarized segment of a recording
type Utterance struct {
	Speaker    string
	Text       string
	StartMs    int64
	EndMs      int64
	Confidence float64
}

// DiarizedTranscript is the provider-neutral result of a transcription
type DiarizedTranscript struct {
	Utterances []Utterance
	// Text is the flat transcript, used when no utterances came back
	Text string
}

// Transcriber turns a recording URL into a diarized transcript
type Transcriber interface {
	Transcribe(ctx context.Context, recordingURL string) (*DiarizedTranscript, error)
}

// AssemblyAIClient wraps the official SDK client
type AssemblyAIClient struct {
	sdk          *aai.Client
	languageCode string
}

// NewAssemblyAIClient creates an AssemblyAI client using the provided config
func NewAssemblyAIClient(cfg *config.AssemblyAIConfig) (*AssemblyAIClient, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	return &AssemblyAIClient{
		sdk:          aai.NewClient(cfg.APIKey),
		languageCode: cfg.LanguageCode,
	}, nil
}

// Transcribe submits the recording with speaker labels and waits for completion
func (c *AssemblyAIClient) Transcribe(ctx context.Context, recordingURL string) (*DiarizedTranscript, error) {
	params := &aai.TranscriptOptionalParams{
		SpeakerLabels: aai.Bool(true),
	}
	if c.languageCode != "" {
		params.LanguageCode = aai.TranscriptLanguageCode(c.languageCode)
	}

	transcript, err := c.sdk.Transcripts.TranscribeFromURL(ctx, recordingURL, params)
	if err != nil {
		return nil, fmt.Errorf("assemblyai transcription failed: %w", err)
	}

	if transcript.Status == aai.TranscriptStatusError {
		msg := "unknown error"
		if transcript.Error != nil {
			msg = *transcript.Error
		}
		return nil, fmt.Errorf("assemblyai reported error: %s", msg)
	}

	return fromSDKTranscript(transcript), nil
}

func fromSDKTranscript(t aai.Transcript) *DiarizedTranscript {
	out := &DiarizedTranscript{Text: deref(t.Text)}
	for _, u := range t.Utterances {
		utt := Utterance{
			Speaker: deref(u.Speaker),
			Text:    deref(u.Text),
		}
		if u.Start != nil {
			utt.StartMs = *u.Start
		}
		if u.End != nil {
			utt.EndMs = *u.End
		}
		if u.Confidence != nil {
			utt.Confidence = *u.Confidence
		}
		out.Utterances = append(out.Utterances, utt)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
