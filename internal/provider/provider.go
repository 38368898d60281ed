// Package provider picks the chat and embedding models used for a batch from
// the backend's provider catalog.
package provider

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/pkg/chatstream"
)

// ErrConfiguration is returned when the catalog cannot satisfy a batch.
var ErrConfiguration = eris.New("provider: configuration error")

// Requested holds the caller's optional provider and model choices.
type Requested struct {
	ChatProvider      string `json:"chatModelProvider,omitempty" mapstructure:"chat_provider" yaml:"chat_provider"`
	ChatModel         string `json:"chatModel,omitempty" mapstructure:"chat_model" yaml:"chat_model"`
	EmbeddingProvider string `json:"embeddingModelProvider,omitempty" mapstructure:"embedding_provider" yaml:"embedding_provider"`
	EmbeddingModel    string `json:"embeddingModel,omitempty" mapstructure:"embedding_model" yaml:"embedding_model"`
}

// Merge returns r with empty fields filled from fallback.
func (r Requested) Merge(fallback Requested) Requested {
	if r.ChatProvider == "" {
		r.ChatProvider = fallback.ChatProvider
	}
	if r.ChatModel == "" {
		r.ChatModel = fallback.ChatModel
	}
	if r.EmbeddingProvider == "" {
		r.EmbeddingProvider = fallback.EmbeddingProvider
	}
	if r.EmbeddingModel == "" {
		r.EmbeddingModel = fallback.EmbeddingModel
	}
	return r
}

// Selection is the resolved pair of models for a batch.
type Selection struct {
	Chat      chatstream.ModelRef `json:"chatModel"`
	Embedding chatstream.ModelRef `json:"embeddingModel"`
}

// Resolve applies the requested choices over the catalog. A requested value
// is used as given; a missing one falls back to the first provider, and that
// provider's first model, in catalog order. It fails with ErrConfiguration
// when either side has no providers to fall back on.
func Resolve(req Requested, cat *chatstream.Catalog) (Selection, error) {
	if cat == nil {
		cat = &chatstream.Catalog{}
	}

	chat, err := pick(req.ChatProvider, req.ChatModel, cat.Chat)
	if err != nil {
		return Selection{}, eris.Wrap(err, "no chat model providers available")
	}
	embedding, err := pick(req.EmbeddingProvider, req.EmbeddingModel, cat.Embedding)
	if err != nil {
		return Selection{}, eris.Wrap(err, "no embedding model providers available")
	}
	return Selection{Chat: chat, Embedding: embedding}, nil
}

func pick(provider, model string, available []chatstream.ProviderModels) (chatstream.ModelRef, error) {
	if provider != "" && model != "" {
		return chatstream.ModelRef{Name: model, Provider: provider}, nil
	}
	if len(available) == 0 {
		return chatstream.ModelRef{}, ErrConfiguration
	}

	entry := available[0]
	if provider != "" {
		entry = chatstream.ProviderModels{Provider: provider}
		for _, pm := range available {
			if pm.Provider == provider {
				entry = pm
				break
			}
		}
	}

	if model == "" {
		if len(entry.Models) == 0 {
			return chatstream.ModelRef{}, ErrConfiguration
		}
		model = entry.Models[0]
	}
	return chatstream.ModelRef{Name: model, Provider: entry.Provider}, nil
}
