package engine

import (
	"context"
)

// SuggestionInput is the engine state handed to the suggestion provider.
type SuggestionInput struct {
	UserID      int32                        `json:"userId"`
	Context     ContextSnapshot              `json:"context"`
	Patterns    PatternSet                   `json:"patterns"`
	Preferences map[string]*PreferenceRecord `json:"preferences"`
	RecentTypes []string                     `json:"recentTypes"`
}

// SuggestionResult is one provider response.
type SuggestionResult struct {
	Suggestions []Recommendation `json:"suggestions"`
	Confidence  float64          `json:"confidence"`
}

// SuggestionProvider is the optional external recommendation source. A nil
// provider, an error, or a nil result all mean the same thing to the engine:
// fall back to rule-based scoring. Implementations must never panic across
// this boundary.
type SuggestionProvider interface {
	GeneratePersonalized(ctx context.Context, input *SuggestionInput) (*SuggestionResult, error)
	GenerateContent(ctx context.Context, input *SuggestionInput) (*SuggestionResult, error)
	GeneratePeers(ctx context.Context, input *SuggestionInput) ([]Recommendation, error)
	GenerateAdaptations(ctx context.Context, input *SuggestionInput) (*SuggestionResult, error)
}
