// Package categorize suggests a spending category for a transaction
// description using Gemini. Suggestions are advisory only; the caller
// decides whether to store them, and a model failure never blocks a write.
package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for category suggestions.
const DefaultModelName = "gemini-2.0-flash"

// DefaultCategories is the taxonomy offered to the model when the caller
// does not supply one.
var DefaultCategories = []string{
	"Groceries",
	"Rent",
	"Utilities",
	"Transport",
	"Eating Out",
	"Entertainment",
	"Health",
	"Salary",
	"Savings",
	"Subscriptions",
	"Other",
}

// Suggestion is one category pick with the model's confidence.
type Suggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Suggester asks a generative model to pick a category for a description.
type Suggester struct {
	client     *genai.Client
	model      string
	categories []string
}

// NewSuggester creates a suggester. Credentials come from the environment
// (GEMINI_API_KEY or Application Default Credentials).
func NewSuggester(ctx context.Context, model string, categories []string) (*Suggester, error) {
	if model == "" {
		model = DefaultModelName
	}
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewSuggester: create genai client: %w", err)
	}

	return &Suggester{client: client, model: model, categories: categories}, nil
}

// Suggest returns a category pick for the given transaction description.
func (s *Suggester) Suggest(ctx context.Context, description string) (*Suggestion, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("Suggest: description cannot be empty")
	}

	prompt :=
		"You are a personal finance categorizer.\n\n" +
			"Task:\n" +
			"- Pick the single best category for the transaction description below.\n" +
			"- Output STRICT JSON only (no comments, no extra text).\n" +
			"- Output one JSON object with these fields:\n" +
			"  - \"category\": string, exactly one of the allowed categories\n" +
			"  - \"confidence\": number between 0 and 1\n\n" +
			"Allowed categories:\n- " + strings.Join(s.categories, "\n- ") + "\n\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n\n" +
			"Transaction description: " + description + "\n"

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Suggest: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("Suggest: empty response from model")
	}

	var suggestion Suggestion
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &suggestion); err != nil {
		return nil, fmt.Errorf("Suggest: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}

	if !s.allowed(suggestion.Category) {
		return nil, fmt.Errorf("Suggest: model returned unknown category %q", suggestion.Category)
	}
	return &suggestion, nil
}

func (s *Suggester) allowed(category string) bool {
	for _, c := range s.categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
