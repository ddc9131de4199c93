package hubspot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ObjectType names a CRM object collection
type ObjectType string

const (
	ObjectContacts  ObjectType = "contacts"
	ObjectCompanies ObjectType = "companies"
)

type batchInputs struct {
	Inputs []idInput `json:"inputs"`
}

type associationResponse struct {
	Results []struct {
		From struct {
			ID string `json:"id"`
		} `json:"from"`
		To []struct {
			ToObjectID int64 `json:"toObjectId"`
		} `json:"to"`
	} `json:"results"`
}

// CallAssociations maps call ids to the ids of associated objects of type to
func (c *Client) CallAssociations(ctx context.Context, to ObjectType, callIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(callIDs))
	path := fmt.Sprintf("/crm/v4/associations/calls/%s/batch/read", to)

	for _, ids := range chunk(callIDs, maxBatchInputs) {
		body := batchInputs{Inputs: make([]idInput, 0, len(ids))}
		for _, id := range ids {
			body.Inputs = append(body.Inputs, idInput{ID: id})
		}

		var resp associationResponse
		if err := c.postJSON(ctx, path, body, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Results {
			for _, t := range r.To {
				out[r.From.ID] = append(out[r.From.ID], strconv.FormatInt(t.ToObjectID, 10))
			}
		}
	}
	return out, nil
}

type batchReadRequest struct {
	Properties []string  `json:"properties"`
	Inputs     []idInput `json:"inputs"`
}

type batchReadResponse struct {
	Results []struct {
		ID         string             `json:"id"`
		Properties map[string]*string `json:"properties"`
	} `json:"results"`
}

// ContactNames returns "first last" display names keyed by contact id
func (c *Client) ContactNames(ctx context.Context, ids []string) (map[string]string, error) {
	return c.names(ctx, ObjectContacts, []string{"firstname", "lastname"}, ids, func(p map[string]*string) string {
		return strings.TrimSpace(prop(p, "firstname") + " " + prop(p, "lastname"))
	})
}

// CompanyNames returns company names keyed by company id
func (c *Client) CompanyNames(ctx context.Context, ids []string) (map[string]string, error) {
	return c.names(ctx, ObjectCompanies, []string{"name"}, ids, func(p map[string]*string) string {
		return prop(p, "name")
	})
}

func (c *Client) names(ctx context.Context, obj ObjectType, props []string, ids []string, display func(map[string]*string) string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	path := fmt.Sprintf("/crm/v3/objects/%s/batch/read", obj)

	for _, batch := range chunk(ids, maxBatchInputs) {
		body := batchReadRequest{Properties: props, Inputs: make([]idInput, 0, len(batch))}
		for _, id := range batch {
			body.Inputs = append(body.Inputs, idInput{ID: id})
		}

		var resp batchReadResponse
		if err := c.postJSON(ctx, path, body, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Results {
			if name := display(r.Properties); name != "" {
				out[r.ID] = name
			}
		}
	}
	return out, nil
}
