package entities

import "errors"

// Domain errors
var (
	// Call errors
	ErrCallNotFound       = errors.New("call not found")
	ErrMissingExternalID  = errors.New("external call id is required")
	ErrMissingCallDate    = errors.New("call date is required")
	ErrInvalidDuration    = errors.New("invalid call duration")
	ErrInvalidCallDate    = errors.New("invalid call date")
	ErrNoTranscript       = errors.New("call has no transcript")
	ErrEmptyTranscription = errors.New("transcription returned no text")

	// SDR errors
	ErrSDRNotFound       = errors.New("sdr not found")
	ErrSDRNotLinkedToCRM = errors.New("sdr has no crm owner id")

	// Analysis errors
	ErrInvalidScoreResponse = errors.New("invalid score response")
	ErrInvalidSkillArea     = errors.New("invalid skill area")
)
