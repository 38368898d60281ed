package notion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Lead queue statuses.
const (
	StatusQueued   = "Queued"
	StatusEnriched = "Enriched"
	StatusFailed   = "Failed"
)

// Lead queue property names.
const (
	PropStatus       = "Status"
	PropEmail        = "Email"
	PropScore        = "Score"
	PropLastEnriched = "Last Enriched"
)

// QueuedLead is one page waiting for enrichment.
type QueuedLead struct {
	PageID string
	Email  string
}

// QueryAll fetches every page matching query, following pagination cursors.
func QueryAll(ctx context.Context, c Client, dbID string, query *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor
	for {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if query != nil {
			req.Filter = query.Filter
			req.Sorts = query.Sorts
			req.PageSize = query.PageSize
		}

		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

// QueuedLeads returns the pages with Status = "Queued" that carry an email.
// Pages without one are skipped.
func QueuedLeads(ctx context.Context, c Client, dbID string) ([]QueuedLead, error) {
	pages, err := QueryAll(ctx, c, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropStatus,
			Status: &notionapi.StatusFilterCondition{
				Equals: StatusQueued,
			},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "notion: query queued leads")
	}

	leads := make([]QueuedLead, 0, len(pages))
	for _, p := range pages {
		email := PageEmail(p)
		if email == "" {
			continue
		}
		leads = append(leads, QueuedLead{PageID: string(p.ID), Email: email})
	}
	return leads, nil
}

// PageEmail reads the Email property, accepting email, title and rich text
// property types.
func PageEmail(page notionapi.Page) string {
	prop, ok := page.Properties[PropEmail]
	if !ok {
		return ""
	}
	var sb strings.Builder
	switch p := prop.(type) {
	case *notionapi.EmailProperty:
		sb.WriteString(p.Email)
	case *notionapi.TitleProperty:
		for _, rt := range p.Title {
			sb.WriteString(rt.PlainText)
		}
	case *notionapi.RichTextProperty:
		for _, rt := range p.RichText {
			sb.WriteString(rt.PlainText)
		}
	}
	return strings.TrimSpace(sb.String())
}

// UpdateLeadStatus writes the enrichment status back to a queue page. Score
// is only written when non-nil.
func UpdateLeadStatus(ctx context.Context, c Client, pageID, status string, score *float64) error {
	now := notionapi.Date(time.Now())
	props := notionapi.Properties{
		PropStatus: notionapi.StatusProperty{
			Status: notionapi.Status{Name: status},
		},
		PropLastEnriched: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &now},
		},
	}
	if score != nil {
		props[PropScore] = notionapi.NumberProperty{Number: *score}
	}

	if _, err := c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props}); err != nil {
		return eris.Wrap(err, fmt.Sprintf("notion: update lead %s to %s", pageID, status))
	}
	return nil
}
