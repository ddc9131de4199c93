package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/internal/domain/repositories"
)

// CallIngest is one call pushed by an external system. Text fields are raw;
// IngestCall normalizes them.
type CallIngest struct {
	ExternalID   string
	OwnerID      string
	SDRSlug      string
	Company      *string
	ProspectName *string
	Transcript   *string
	RecordingURL *string
	Outcome      string
	Duration     string
	CalledAt     string
}

// IngestCall normalizes a pushed call, resolves its rep and merges it into the call store
func (s *pipelineService) IngestCall(ctx context.Context, in CallIngest) (*IngestResult, error) {
	externalID := strings.TrimSpace(in.ExternalID)
	if externalID == "" {
		return nil, entities.ErrMissingExternalID
	}

	sdr, err := s.resolveSDR(ctx, in.OwnerID, in.SDRSlug)
	if err != nil {
		return nil, err
	}

	durationMs, err := ParseDurationMs(in.Duration)
	if err != nil {
		return nil, err
	}

	calledAt := s.now().UTC()
	if strings.TrimSpace(in.CalledAt) != "" {
		calledAt, err = ParseCallTime(in.CalledAt)
		if err != nil {
			return nil, err
		}
	}

	u := entities.CallUpsert{
		ExternalID:    externalID,
		SDRID:         sdr.ID,
		Company:       in.Company,
		ProspectName:  in.ProspectName,
		CallDate:      entities.DateOnly(calledAt),
		CallTimestamp: &calledAt,
		DurationMs:    durationMs,
		Transcript:    in.Transcript,
		RecordingURL:  in.RecordingURL,
		Source:        entities.CallSourceWebhook,
	}

	result := &IngestResult{
		ExternalID: externalID,
		SDRID:      sdr.ID,
		DurationMs: durationMs,
		CallDate:   u.CallDate.Format(time.DateOnly),
	}
	if strings.TrimSpace(in.Outcome) != "" {
		outcome := entities.ParseOutcome(in.Outcome)
		u.Disposition = &entities.Disposition{Label: outcome.Label(), Outcome: outcome}
		result.Outcome = &outcome
	}

	result.Upsert, err = s.calls.UpsertCall(ctx, u)
	if err != nil {
		return nil, storeError("store call", err)
	}

	s.logger.Info("📥 Call ingested",
		zap.String("external_id", externalID),
		zap.String("sdr_id", sdr.ID.String()),
		zap.String("upsert", string(result.Upsert)),
	)
	return result, nil
}

func (s *pipelineService) resolveSDR(ctx context.Context, ownerID, slug string) (*entities.SDR, error) {
	ownerID = strings.TrimSpace(ownerID)
	slug = strings.TrimSpace(slug)

	if ownerID != "" {
		sdr, err := s.sdrs.FindByCRMOwnerID(ctx, ownerID)
		switch {
		case err == nil:
			return sdr, nil
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, storeError("resolve sdr", err)
		}
	}
	if slug != "" {
		sdr, err := s.sdrs.FindBySlug(ctx, slug)
		switch {
		case err == nil:
			return sdr, nil
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, storeError("resolve sdr", err)
		}
	}
	return nil, entities.ErrSDRNotFound
}

// ParseDurationMs reads a call duration in milliseconds. Accepted forms are
// bare seconds ("272"), Go durations ("272s", "4m32s") and clock notation
// ("4:32", "1:02:03"). Empty input returns nil.
func ParseDurationMs(text string) (*int64, error) {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return nil, nil
	}

	ms, err := parseDuration(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidDuration, text)
	}
	if ms < 0 {
		return nil, fmt.Errorf("%w: %q is negative", entities.ErrInvalidDuration, text)
	}
	return &ms, nil
}

// maxDurationSeconds is the largest whole-second duration whose milliseconds fit in an int64
const maxDurationSeconds = math.MaxInt64 / 1000

// float64(math.MaxInt64) rounds up to 2^63, so a product at or above it cannot be converted
const maxDurationMsFloat = float64(math.MaxInt64)

var errDurationRange = errors.New("duration out of range")

func parseDuration(text string) (int64, error) {
	if secs, err := strconv.ParseFloat(text, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, errors.New("not a number")
		}
		ms := math.Round(secs * 1000)
		if math.Abs(ms) >= maxDurationMsFloat {
			return 0, errDurationRange
		}
		return int64(ms), nil
	}
	if strings.Contains(text, ":") {
		parts := strings.Split(text, ":")
		if len(parts) > 3 {
			return 0, errors.New("too many fields")
		}
		var total int64
		for _, p := range parts {
			n, err := strconv.ParseInt(p, 10, 64)
			if err != nil || n < 0 {
				return 0, errors.New("bad clock field")
			}
			if total > (maxDurationSeconds-n)/60 {
				return 0, errDurationRange
			}
			total = total*60 + n
		}
		return total * 1000, nil
	}
	d, err := time.ParseDuration(text)
	if err != nil {
		return 0, err
	}
	return d.Milliseconds(), nil
}

var callTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"01/02/2006",
}

// ParseCallTime reads a call time in UTC. Accepted forms are RFC 3339,
// "2006-01-02", "01/02/2006" and unix seconds or milliseconds.
func ParseCallTime(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		// Anything past 1e11 seconds is year 5000+, so it must be milliseconds
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range callTimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", entities.ErrInvalidCallDate, text)
}
