package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/pkg/hubspot"
)

const (
	nsContact = "contact"
	nsCompany = "company"
)

// Enrich pulls each active rep's CRM calls inside the lookback window and
// merges them into the call store. A non-positive lookback uses the configured default.
func (s *pipelineService) Enrich(ctx context.Context, lookbackDays int) (*EnrichResult, error) {
	if s.crm == nil {
		return nil, ErrCRMNotConfigured
	}
	if lookbackDays <= 0 {
		lookbackDays = s.opts.LookbackDays
	}
	if lookbackDays <= 0 {
		lookbackDays = DefaultOptions().LookbackDays
	}

	var result *EnrichResult
	err := s.withStage(ctx, StageEnrich, s.opts.StageTimeout, func(ctx context.Context) error {
		var err error
		result, err = s.enrich(ctx, lookbackDays)
		return err
	})
	return result, err
}

func (s *pipelineService) enrich(ctx context.Context, lookbackDays int) (*EnrichResult, error) {
	window := enrichWindow(s.now(), lookbackDays)

	sdrs, err := s.sdrs.ListActive(ctx)
	if err != nil {
		return nil, storeError("list active sdrs", err)
	}

	s.logger.Info("🔄 Enrichment started",
		zap.Int("sdrs", len(sdrs)),
		zap.Int("lookback_days", lookbackDays),
		zap.Time("from", window.From),
	)

	result := &EnrichResult{LookbackDays: lookbackDays, Window: window, SDRs: make([]SDREnrichResult, 0, len(sdrs))}
	for _, sdr := range sdrs {
		res := SDREnrichResult{SDRID: sdr.ID, SDRName: sdr.Name, Errors: []string{}}
		if sdr.OwnerID() == "" {
			res.Errors = append(res.Errors, entities.ErrSDRNotLinkedToCRM.Error())
		} else {
			s.enrichSDR(ctx, sdr, window, &res)
		}
		result.SDRs = append(result.SDRs, res)
	}
	result.tally()

	s.logger.Info("✅ Enrichment finished",
		zap.Int("calls_found", result.Totals.CallsFound),
		zap.Int("inserted", result.Totals.Inserted),
		zap.Int("merged", result.Totals.Merged),
		zap.Int("errors", result.Totals.Errors),
	)
	return result, nil
}

// enrichSDR pages through one rep's calls. Errors are recorded on res.
func (s *pipelineService) enrichSDR(ctx context.Context, sdr *entities.SDR, window Window, res *SDREnrichResult) {
	after := ""
	for {
		page, err := s.crm.SearchCalls(ctx, hubspot.CallSearch{
			OwnerID: sdr.OwnerID(),
			From:    window.From,
			To:      window.To,
			Limit:   s.opts.CRMPageSize,
			After:   after,
		})
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("search calls: %v", err))
			return
		}

		res.CallsFound += len(page.Calls)
		s.enrichPage(ctx, sdr, page.Calls, res)

		if page.NextAfter == "" || page.NextAfter == after {
			return
		}
		after = page.NextAfter
	}
}

type pageNames struct {
	contactsByCall  map[string][]string
	companiesByCall map[string][]string
	contactNames    map[string]string
	companyNames    map[string]string
}

func (s *pipelineService) enrichPage(ctx context.Context, sdr *entities.SDR, calls []hubspot.CallRecord, res *SDREnrichResult) {
	if len(calls) == 0 {
		return
	}
	names := s.resolvePageNames(ctx, calls, res)

	for _, rec := range calls {
		u, err := s.callUpsertFromCRM(sdr, rec, names)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("call %s: %v", rec.ID, err))
			continue
		}
		outcome, err := s.calls.UpsertCall(ctx, u)
		if err != nil {
			s.logger.Error("❌ Failed to upsert call",
				zap.String("external_id", rec.ID),
				zap.Error(err),
			)
			res.Errors = append(res.Errors, fmt.Sprintf("call %s: %v", rec.ID, err))
			continue
		}
		res.count(outcome)
	}
}

// resolvePageNames reads associations for the whole page, then names for the
// deduplicated ids. Failures leave names unresolved; the calls are still stored.
func (s *pipelineService) resolvePageNames(ctx context.Context, calls []hubspot.CallRecord, res *SDREnrichResult) pageNames {
	ids := make([]string, 0, len(calls))
	for _, c := range calls {
		ids = append(ids, c.ID)
	}

	out := pageNames{
		contactsByCall:  map[string][]string{},
		companiesByCall: map[string][]string{},
		contactNames:    map[string]string{},
		companyNames:    map[string]string{},
	}

	if assoc, err := s.crm.CallAssociations(ctx, hubspot.ObjectContacts, ids); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("contact associations: %v", err))
	} else {
		out.contactsByCall = assoc
	}
	if assoc, err := s.crm.CallAssociations(ctx, hubspot.ObjectCompanies, ids); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("company associations: %v", err))
	} else {
		out.companiesByCall = assoc
	}

	if names, err := s.lookupNames(ctx, nsContact, uniqueIDs(out.contactsByCall), s.crm.ContactNames); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("contact names: %v", err))
	} else {
		out.contactNames = names
	}
	if names, err := s.lookupNames(ctx, nsCompany, uniqueIDs(out.companiesByCall), s.crm.CompanyNames); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("company names: %v", err))
	} else {
		out.companyNames = names
	}
	return out
}

func (s *pipelineService) lookupNames(
	ctx context.Context,
	namespace string,
	ids []string,
	fetch func(context.Context, []string) (map[string]string, error),
) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	found := map[string]string{}
	missing := ids
	if s.names != nil {
		found, missing = s.names.GetMany(namespace, ids)
	}
	if len(missing) == 0 {
		return found, nil
	}

	fetched, err := fetch(ctx, missing)
	if err != nil {
		return found, err
	}
	if s.names != nil {
		s.names.SetMany(namespace, fetched)
	}
	for id, name := range fetched {
		found[id] = name
	}
	return found, nil
}

// uniqueIDs flattens an association map without duplicates
func uniqueIDs(byCall map[string][]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ids := range byCall {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func firstName(ids []string, names map[string]string) *string {
	for _, id := range ids {
		if n, ok := names[id]; ok && n != "" {
			v := n
			return &v
		}
	}
	return nil
}

func (s *pipelineService) callUpsertFromCRM(sdr *entities.SDR, rec hubspot.CallRecord, names pageNames) (entities.CallUpsert, error) {
	if rec.ID == "" {
		return entities.CallUpsert{}, entities.ErrMissingExternalID
	}
	if rec.Timestamp.IsZero() {
		return entities.CallUpsert{}, entities.ErrMissingCallDate
	}

	ts := rec.Timestamp.UTC()
	u := entities.CallUpsert{
		ExternalID:    rec.ID,
		SDRID:         sdr.ID,
		Company:       firstName(names.companiesByCall[rec.ID], names.companyNames),
		ProspectName:  firstName(names.contactsByCall[rec.ID], names.contactNames),
		CallDate:      entities.DateOnly(ts),
		CallTimestamp: &ts,
		Source:        entities.CallSourceCRM,
	}
	if rec.DurationMs > 0 {
		d := rec.DurationMs
		u.DurationMs = &d
	}
	if rec.RecordingURL != "" {
		url := rec.RecordingURL
		u.RecordingURL = &url
	}
	if rec.DispositionID != "" {
		d, known := entities.LookupDisposition(rec.DispositionID)
		if !known {
			s.logger.Warn("⚠️ Unknown disposition id, mapping to other",
				zap.String("external_id", rec.ID),
				zap.String("disposition_id", rec.DispositionID),
			)
		}
		u.Disposition = &d
	}
	if LooksLikeTranscript(rec.Body) {
		text := StripHTML(rec.Body)
		u.Transcript = &text
	}
	return u, nil
}

// enrichWindow spans from midnight lookbackDays ago to now
func enrichWindow(now time.Time, lookbackDays int) Window {
	now = now.UTC()
	return Window{From: entities.DateOnly(now).AddDate(0, 0, -lookbackDays), To: now}
}
