package domain

import "encoding/json"

// HarmfulComponent is one analyzer-flagged ingredient with its effect.
type HarmfulComponent struct {
	Name           string `json:"name,omitempty"`
	Effect         string `json:"effect,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	Level          string `json:"level,omitempty"`
	RiskGroup      string `json:"risk_group,omitempty"`
	Severity       string `json:"severity,omitempty"`
}

// Assessment is the analyzer gateway's loosely structured verdict.
//
// All fields are best-effort: an out-of-domain product comes back as the
// zero value, and a degraded analyzer response carries only Analysis.
// The merge step treats both cases the same way, falling back to raw
// source fields wherever an assessment field is empty.
type Assessment struct {
	ProductName       string             `json:"product_name"`
	Manufacturer      string             `json:"manufacturer"`
	Ingredients       string             `json:"ingredients"`
	OverallScore      *float64           `json:"overall_score"`
	Allergens         json.RawMessage    `json:"allergens"`
	ExplanationScore  string             `json:"explanation_score"`
	Nutrition         *Nutrition         `json:"nutrition"`
	HarmfulComponents []HarmfulComponent `json:"harmful_components"`
	RecommendedFor    string             `json:"recommendedfor"`
	Frequency         string             `json:"frequency"`
	Alternatives      string             `json:"alternatives"`
	Tags              []string           `json:"tags"`

	// Analysis holds the raw model output when it could not be parsed
	// as the structured schema, or the placeholder text when the call
	// itself failed.
	Analysis string `json:"analysis,omitempty"`
}
