package chatstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
)

// ProviderModels lists the model names one provider offers, in backend order.
type ProviderModels struct {
	Provider string   `json:"provider"`
	Models   []string `json:"models"`
}

// Catalog is the decoded provider listing. Provider and model order follow
// the backend response so "first available" matches what the backend lists
// first.
type Catalog struct {
	Chat      []ProviderModels `json:"chat"`
	Embedding []ProviderModels `json:"embedding"`
}

type modelsResponse struct {
	ChatModelProviders      json.RawMessage `json:"chatModelProviders"`
	EmbeddingModelProviders json.RawMessage `json:"embeddingModelProviders"`
}

func (c *httpClient) Providers(ctx context.Context) (*Catalog, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "chatstream: rate limit")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+modelsPath, nil)
	if err != nil {
		return nil, eris.Wrap(err, "chatstream: create models request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "chatstream: send models request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "chatstream: read models response")
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes a provider listing of the form
// {"chatModelProviders": {provider: {model: {...}}}, "embeddingModelProviders": {...}}.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var mr modelsResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		return nil, eris.Wrap(err, "chatstream: unmarshal models response")
	}
	chat, err := parseProviders(mr.ChatModelProviders)
	if err != nil {
		return nil, eris.Wrap(err, "chatstream: chat providers")
	}
	embedding, err := parseProviders(mr.EmbeddingModelProviders)
	if err != nil {
		return nil, eris.Wrap(err, "chatstream: embedding providers")
	}
	return &Catalog{Chat: chat, Embedding: embedding}, nil
}

func parseProviders(raw json.RawMessage) ([]ProviderModels, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	var byProvider map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byProvider); err != nil {
		return nil, eris.Wrap(err, "decode provider map")
	}
	providers, err := objectKeys(raw)
	if err != nil {
		return nil, err
	}

	out := make([]ProviderModels, 0, len(providers))
	for _, p := range providers {
		models, err := objectKeys(byProvider[p])
		if err != nil {
			return nil, eris.Wrapf(err, "decode models for %s", p)
		}
		out = append(out, ProviderModels{Provider: p, Models: models})
	}
	return out, nil
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, eris.Wrap(err, "read object start")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, eris.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, eris.Wrap(err, "read object key")
		}
		key, ok := tok.(string)
		if !ok {
			return nil, eris.Errorf("unexpected key token %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, eris.Wrapf(err, "read value for %s", key)
		}
	}
	return keys, nil
}
