// Package notion reads leads waiting for enrichment from a Notion database
// and writes their status and score back to the same pages.
//
// The queue database needs an Email property (email, title or rich text) and
// a Status select. Finished runs also set Score and Last Enriched. Property
// names are the Prop* constants.
package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// defaultQueueRPS matches Notion's published per-integration limit.
const defaultQueueRPS = 3

// Client is the slice of the Notion API the lead queue touches: paging
// through queued leads and patching a lead page once its run finishes.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// ClientOption configures a queue client.
type ClientOption func(*queueClient)

// WithRateLimit sets the request rate shared by queue reads and status
// write-backs. Zero or less disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *queueClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

type queueClient struct {
	api     *notionapi.Client
	limiter *rate.Limiter
}

// NewClient returns a lead queue client authenticated with an internal
// integration token. Calls are throttled to 3 req/s unless overridden.
func NewClient(token string, opts ...ClientOption) Client {
	c := &queueClient{
		api:     notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(defaultQueueRPS, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *queueClient) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "notion: rate limit")
	}
	return nil
}

// QueryDatabase fetches one page of queue rows.
func (c *queueClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("notion: query lead queue %s", dbID))
	}
	return resp, nil
}

// UpdatePage patches the properties of a single lead page.
func (c *queueClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	page, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), req)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("notion: update lead page %s", pageID))
	}
	return page, nil
}
