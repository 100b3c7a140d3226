package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"keeper/internal/insight"
)

type openaiInsight struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
	DollarValue float64  `json:"dollar_value"`
	Reasoning   string   `json:"reasoning"`
	ActionItems []string `json:"action_items"`
}

type anthropicInsight struct {
	Opportunity     string   `json:"opportunity"`
	Explanation     string   `json:"explanation"`
	ConfidenceLevel float64  `json:"confidence_level"`
	AnnualValue     float64  `json:"annual_value"`
	Implementation  []string `json:"implementation"`
}

type geminiOpportunity struct {
	Insight          string   `json:"insight"`
	ValueCalculation string   `json:"value_calculation"`
	Confidence       float64  `json:"confidence"`
	EstimatedValue   float64  `json:"estimated_value"`
	NextSteps        []string `json:"next_steps"`
}

// OpenAIAdapter reads {"insights":[{"title",...,"dollar_value"}]}. GigaChat
// is prompted for the same shape.
func OpenAIAdapter(payload []byte) ([]insight.Insight, error) {
	return decodeEntries(payload, "insights", func(e openaiInsight) (insight.Insight, bool) {
		in := insight.Insight{
			Category:    insight.CategoryModel,
			Description: strings.TrimSpace(e.Title),
			Reasoning:   e.Reasoning,
			Confidence:  e.Confidence,
			Value:       e.DollarValue,
			Actions:     e.ActionItems,
		}
		if in.Description == "" {
			in.Description = strings.TrimSpace(e.Description)
		} else if e.Description != "" {
			in.Evidence = map[string]any{"detail": e.Description}
		}
		return in, in.Description != ""
	})
}

// AnthropicAdapter reads {"insights":[{"opportunity",...,"annual_value"}]}.
func AnthropicAdapter(payload []byte) ([]insight.Insight, error) {
	return decodeEntries(payload, "insights", func(e anthropicInsight) (insight.Insight, bool) {
		in := insight.Insight{
			Category:    insight.CategoryModel,
			Description: strings.TrimSpace(e.Opportunity),
			Reasoning:   e.Explanation,
			Confidence:  e.ConfidenceLevel,
			Value:       e.AnnualValue,
			Actions:     e.Implementation,
		}
		return in, in.Description != ""
	})
}

// GeminiAdapter reads {"opportunities":[{"insight",...,"estimated_value"}]}.
func GeminiAdapter(payload []byte) ([]insight.Insight, error) {
	return decodeEntries(payload, "opportunities", func(e geminiOpportunity) (insight.Insight, bool) {
		in := insight.Insight{
			Category:    insight.CategoryModel,
			Description: strings.TrimSpace(e.Insight),
			Reasoning:   e.ValueCalculation,
			Confidence:  e.Confidence,
			Value:       e.EstimatedValue,
			Actions:     e.NextSteps,
		}
		return in, in.Description != ""
	})
}

// decodeEntries unmarshals envelope[key] entry by entry so one bad entry
// does not discard its siblings.
func decodeEntries[T any](payload []byte, key string, convert func(T) (insight.Insight, bool)) ([]insight.Insight, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	raw, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("invalid envelope: missing %q", key)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("invalid envelope: %q is not a list: %w", key, err)
	}

	out := make([]insight.Insight, 0, len(entries))
	for _, e := range entries {
		var entry T
		if err := json.Unmarshal(e, &entry); err != nil {
			continue
		}
		if in, ok := convert(entry); ok {
			out = append(out, in)
		}
	}
	return out, nil
}
