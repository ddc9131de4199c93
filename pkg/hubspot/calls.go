package hubspot

import (
	"context"
	"strconv"
	"strings"
	"time"
)

var callProperties = []string{
	"hs_call_body",
	"hs_call_duration",
	"hs_call_disposition",
	"hs_call_recording_url",
	"hs_timestamp",
	"hubspot_owner_id",
	"hs_call_title",
}

// CallRecord is a call engagement as read from the CRM
type CallRecord struct {
	ID            string
	OwnerID       string
	Title         string
	Body          string
	DurationMs    int64
	DispositionID string
	RecordingURL  string
	Timestamp     time.Time
}

// CallSearch selects calls by owner and time window
type CallSearch struct {
	OwnerID string
	From    time.Time
	To      time.Time
	Limit   int
	After   string
}

// CallPage is one page of search results
type CallPage struct {
	Calls []CallRecord
	// NextAfter is empty on the last page
	NextAfter string
}

type searchFilter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value,omitempty"`
	HighValue    string `json:"highValue,omitempty"`
}

type searchFilterGroup struct {
	Filters []searchFilter `json:"filters"`
}

type searchSort struct {
	PropertyName string `json:"propertyName"`
	Direction    string `json:"direction"`
}

type searchRequest struct {
	FilterGroups []searchFilterGroup `json:"filterGroups"`
	Sorts        []searchSort        `json:"sorts,omitempty"`
	Properties   []string            `json:"properties"`
	Limit        int                 `json:"limit"`
	After        string              `json:"after,omitempty"`
}

type searchResponse struct {
	Results []struct {
		ID         string             `json:"id"`
		Properties map[string]*string `json:"properties"`
	} `json:"results"`
	Paging *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

// SearchCalls returns one page of calls owned by OwnerID inside [From, To]
func (c *Client) SearchCalls(ctx context.Context, q CallSearch) (*CallPage, error) {
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	body := searchRequest{
		FilterGroups: []searchFilterGroup{{
			Filters: []searchFilter{
				{PropertyName: "hubspot_owner_id", Operator: "EQ", Value: q.OwnerID},
				{
					PropertyName: "hs_timestamp",
					Operator:     "BETWEEN",
					Value:        strconv.FormatInt(q.From.UnixMilli(), 10),
					HighValue:    strconv.FormatInt(q.To.UnixMilli(), 10),
				},
			},
		}},
		Sorts:      []searchSort{{PropertyName: "hs_timestamp", Direction: "ASCENDING"}},
		Properties: callProperties,
		Limit:      limit,
		After:      q.After,
	}

	var resp searchResponse
	if err := c.postJSON(ctx, "/crm/v3/objects/calls/search", body, &resp); err != nil {
		return nil, err
	}

	page := &CallPage{Calls: make([]CallRecord, 0, len(resp.Results))}
	for _, r := range resp.Results {
		page.Calls = append(page.Calls, toCallRecord(r.ID, r.Properties))
	}
	if resp.Paging != nil && resp.Paging.Next != nil {
		page.NextAfter = resp.Paging.Next.After
	}
	return page, nil
}

func toCallRecord(id string, props map[string]*string) CallRecord {
	rec := CallRecord{
		ID:            id,
		OwnerID:       prop(props, "hubspot_owner_id"),
		Title:         prop(props, "hs_call_title"),
		Body:          prop(props, "hs_call_body"),
		DispositionID: prop(props, "hs_call_disposition"),
		RecordingURL:  prop(props, "hs_call_recording_url"),
	}
	if d, err := strconv.ParseFloat(prop(props, "hs_call_duration"), 64); err == nil && d > 0 {
		rec.DurationMs = int64(d)
	}
	rec.Timestamp = parseTimestamp(prop(props, "hs_timestamp"))
	return rec
}

func prop(props map[string]*string, key string) string {
	if v, ok := props[key]; ok && v != nil {
		return strings.TrimSpace(*v)
	}
	return ""
}

// parseTimestamp accepts ISO-8601 strings and epoch milliseconds
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}
