// Package usage normalizes provider-specific response shapes into token
// counts. One projection per supported provider; adding a provider is a
// Register call, not a new conditional.
package usage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// Usage is the normalized token usage extracted from a provider response.
type Usage struct {
	Model     string
	TokensIn  int64
	TokensOut int64
}

// MalformedResponseError reports a response the declared provider's
// projection could not read, e.g. a streaming response without aggregated
// usage. Extraction never substitutes zero tokens: that would silently
// corrupt aggregates.
type MalformedResponseError struct {
	Provider string
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("usage: malformed %s response: %s", e.Provider, e.Reason)
}

// Projection reads model and token counts out of a response body.
type Projection func(body []byte) (Usage, error)

var (
	mu          sync.RWMutex
	projections = map[string]Projection{
		"openai":    extractOpenAI,
		"anthropic": extractAnthropic,
	}
)

// Register adds or replaces the projection for a provider.
func Register(provider string, p Projection) {
	mu.Lock()
	defer mu.Unlock()
	projections[strings.ToLower(provider)] = p
}

// Providers returns the providers with a registered projection, sorted.
func Providers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(projections))
	for name := range projections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extract normalizes a provider response into token usage. The response may
// be raw JSON ([]byte, json.RawMessage, string) or any SDK response value
// that marshals to the provider's wire shape.
func Extract(provider string, response any) (Usage, error) {
	mu.RLock()
	p, ok := projections[strings.ToLower(provider)]
	mu.RUnlock()
	if !ok {
		return Usage{}, &MalformedResponseError{Provider: provider, Reason: "no projection registered for provider"}
	}

	body, err := responseBody(provider, response)
	if err != nil {
		return Usage{}, err
	}
	return p(body)
}

func responseBody(provider string, response any) ([]byte, error) {
	switch v := response.(type) {
	case nil:
		return nil, &MalformedResponseError{Provider: provider, Reason: "response is nil"}
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, &MalformedResponseError{Provider: provider, Reason: fmt.Sprintf("response not marshalable: %v", err)}
		}
		return b, nil
	}
}

func extractOpenAI(body []byte) (Usage, error) {
	if !gjson.ValidBytes(body) {
		return Usage{}, &MalformedResponseError{Provider: "openai", Reason: "response is not valid JSON"}
	}
	model := gjson.GetBytes(body, "model")
	in := gjson.GetBytes(body, "usage.prompt_tokens")
	out := gjson.GetBytes(body, "usage.completion_tokens")
	if !model.Exists() {
		return Usage{}, &MalformedResponseError{Provider: "openai", Reason: "missing model field"}
	}
	if !in.Exists() || !out.Exists() {
		return Usage{}, &MalformedResponseError{Provider: "openai", Reason: "missing usage.prompt_tokens/usage.completion_tokens"}
	}
	return Usage{Model: model.String(), TokensIn: in.Int(), TokensOut: out.Int()}, nil
}

func extractAnthropic(body []byte) (Usage, error) {
	if !gjson.ValidBytes(body) {
		return Usage{}, &MalformedResponseError{Provider: "anthropic", Reason: "response is not valid JSON"}
	}
	model := gjson.GetBytes(body, "model")
	in := gjson.GetBytes(body, "usage.input_tokens")
	out := gjson.GetBytes(body, "usage.output_tokens")
	if !model.Exists() {
		return Usage{}, &MalformedResponseError{Provider: "anthropic", Reason: "missing model field"}
	}
	if !in.Exists() || !out.Exists() {
		return Usage{}, &MalformedResponseError{Provider: "anthropic", Reason: "missing usage.input_tokens/usage.output_tokens"}
	}
	return Usage{Model: model.String(), TokensIn: in.Int(), TokensOut: out.Int()}, nil
}
