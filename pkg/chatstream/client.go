package chatstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "http://localhost:3000"
	chatPath       = "/api/chat"
	modelsPath     = "/api/models"
	readChunkSize  = 4096
)

// Client is the chat backend surface used by the enrichment pipeline.
type Client interface {
	// Send asks one question and returns the assembled, trimmed answer.
	Send(ctx context.Context, req Request) (string, error)
	// Providers lists the chat and embedding models the backend offers.
	Providers(ctx context.Context) (*Catalog, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default backend base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the overall per-request timeout, stream read included.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit throttles outbound requests to rps per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithMaxRecordBytes bounds the unparsed bytes held by the stream decoder.
func WithMaxRecordBytes(n int) Option {
	return func(c *httpClient) {
		c.maxRecordBytes = n
	}
}

type httpClient struct {
	baseURL        string
	http           *http.Client
	limiter        *rate.Limiter
	maxRecordBytes int
}

// NewClient creates a chat backend client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxRecordBytes: DefaultMaxRecordBytes,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *httpClient) Send(ctx context.Context, req Request) (string, error) {
	if req.MessageID == "" {
		req.MessageID = uuid.NewString()
	}

	body, err := json.Marshal(req.wire())
	if err != nil {
		return "", eris.Wrap(err, "chatstream: marshal request")
	}

	if err := c.wait(ctx); err != nil {
		return "", eris.Wrap(err, "chatstream: rate limit")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "chatstream: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "chatstream: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp)
	}

	return c.consume(resp.Body, req)
}

// consume reads the event stream until messageEnd, an error record, or EOF.
func (c *httpClient) consume(body io.Reader, req Request) (string, error) {
	dec := NewDecoder(c.maxRecordBytes)
	var answer strings.Builder
	chunk := make([]byte, readChunkSize)

	for {
		n, readErr := body.Read(chunk)
		if n > 0 {
			if err := dec.Feed(chunk[:n]); err != nil {
				return "", eris.Wrapf(err, "chatstream: decode stream for message %s", req.MessageID)
			}
			done, err := drain(dec, &answer)
			if err != nil {
				return "", err
			}
			if done {
				return strings.TrimSpace(answer.String()), nil
			}
		}

		if errors.Is(readErr, io.EOF) {
			dec.Flush()
			done, err := drain(dec, &answer)
			if err != nil {
				return "", err
			}
			if !done {
				zap.L().Warn("chatstream: stream ended without messageEnd",
					zap.String("chat_id", req.ChatID),
					zap.String("message_id", req.MessageID),
					zap.Int("partial_len", answer.Len()),
					zap.Int("dropped_fragments", dec.Dropped()),
				)
			}
			return strings.TrimSpace(answer.String()), nil
		}
		if readErr != nil {
			return "", eris.Wrap(readErr, "chatstream: read stream")
		}
	}
}

// drain applies decoded events to the answer. It reports done once a
// messageEnd record is seen; later events are left unread.
func drain(dec *Decoder, answer *strings.Builder) (bool, error) {
	for {
		ev, ok := dec.Next()
		if !ok {
			return false, nil
		}
		switch ev.Type {
		case EventError:
			return false, &BackendStreamError{Payload: ev.Text(), MessageID: ev.MessageID}
		case EventMessage:
			answer.WriteString(ev.Text())
		case EventMessageEnd:
			return true, nil
		default:
			zap.L().Debug("chatstream: ignoring stream record", zap.String("type", string(ev.Type)))
		}
	}
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*snippetLimit))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Snippet:    truncate(strings.TrimSpace(string(raw)), snippetLimit),
	}
}
