// Package tokenizer estimates token counts for text, so a call's cost can be
// projected before it is made, or recorded when only raw prompt/completion
// text is available instead of provider-reported usage.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// encodingForModel maps OpenAI model families to tiktoken encodings.
var encodingForModel = map[string]tokenizer.Encoding{
	"gpt-4o":        tokenizer.O200kBase,
	"gpt-4o-mini":   tokenizer.O200kBase,
	"gpt-4-turbo":   tokenizer.Cl100kBase,
	"gpt-4":         tokenizer.Cl100kBase,
	"gpt-3.5-turbo": tokenizer.Cl100kBase,
}

// Count returns the token count for text under the given provider/model.
// OpenAI models use tiktoken; other providers fall back to character-based
// estimation, which is close enough for cost projection.
func Count(text, provider, model string) (int64, error) {
	if strings.EqualFold(provider, "openai") {
		return countOpenAI(text, model)
	}
	return estimate(text), nil
}

// CountPair counts prompt and completion text in one call, for recording a
// call from raw text when the provider response carried no usage block.
func CountPair(prompt, completion, provider, model string) (tokensIn, tokensOut int64, err error) {
	tokensIn, err = Count(prompt, provider, model)
	if err != nil {
		return 0, 0, err
	}
	tokensOut, err = Count(completion, provider, model)
	if err != nil {
		return 0, 0, err
	}
	return tokensIn, tokensOut, nil
}

func countOpenAI(text, model string) (int64, error) {
	encoding, ok := encodingForModel[normalizeModel(model)]
	if !ok {
		// Newer OpenAI models default to the o200k vocabulary.
		encoding = tokenizer.O200kBase
	}

	enc, err := tokenizer.Get(encoding)
	if err != nil {
		return 0, fmt.Errorf("load encoding %s: %w", encoding, err)
	}

	ids, _, err := enc.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode text: %w", err)
	}
	return int64(len(ids)), nil
}

// normalizeModel strips version suffixes so dated snapshots map to their
// base family's encoding, longest family first.
func normalizeModel(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if _, ok := encodingForModel[model]; ok {
		return model
	}
	best := ""
	for family := range encodingForModel {
		if strings.HasPrefix(model, family) && len(family) > len(best) {
			best = family
		}
	}
	return best
}

// estimate approximates tokens as one per four characters.
func estimate(text string) int64 {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return 0
	}
	return int64((len(text) + 3) / 4)
}
