package domain

import "encoding/json"

// Status reflects how much trust a product record carries.
type Status string

const (
	StatusVerified Status = "verified"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
	StatusDeleted  Status = "deleted"
)

// Nutrition is the per-product macronutrient breakdown reported by the
// analyzer. Every field is optional; sources rarely provide all of them.
type Nutrition struct {
	Proteins      *float64 `json:"proteins,omitempty"`
	Fats          *float64 `json:"fats,omitempty"`
	Carbohydrates *float64 `json:"carbohydrates,omitempty"`
	Calories      *float64 `json:"calories,omitempty"`
	Kcal          *float64 `json:"kcal,omitempty"`
}

// Product is the canonical record cached per barcode.
//
// Allergens is kept as raw JSON because sources disagree on its shape:
// the analyzer usually returns a string, the food-database API a mapping.
// Consumers must accept either; no normalization is performed.
type Product struct {
	Barcode          string          `json:"barcode"`
	Name             string          `json:"product_name"`
	Manufacturer     string          `json:"manufacturer,omitempty"`
	Score            *float64        `json:"score,omitempty"`
	Nutrition        *Nutrition      `json:"nutrition,omitempty"`
	Allergens        json.RawMessage `json:"allergens,omitempty"`
	Extra            map[string]any  `json:"extra,omitempty"`
	ImageFront       string          `json:"image_front,omitempty"`
	ImageIngredients string          `json:"image_ingredients,omitempty"`
	Tags             []string        `json:"tags,omitempty"`
	Status           Status          `json:"status"`
}

// Resolved reports whether the record carries actual content, as opposed
// to an existence-only placeholder (barcode known, no data available).
func (p Product) Resolved() bool {
	return p.Name != "" && p.Score != nil
}

// ProductUpdate carries partial curation edits; nil fields are left as-is.
type ProductUpdate struct {
	Name             *string         `json:"product_name,omitempty"`
	Manufacturer     *string         `json:"manufacturer,omitempty"`
	Score            *float64        `json:"score,omitempty"`
	Nutrition        *Nutrition      `json:"nutrition,omitempty"`
	Allergens        json.RawMessage `json:"allergens,omitempty"`
	Extra            map[string]any  `json:"extra,omitempty"`
	ImageFront       *string         `json:"image_front,omitempty"`
	ImageIngredients *string         `json:"image_ingredients,omitempty"`
	Tags             []string        `json:"tags,omitempty"`
	Status           *Status         `json:"status,omitempty"`
}

// Apply overlays the non-nil update fields onto the product.
func (u ProductUpdate) Apply(p *Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Manufacturer != nil {
		p.Manufacturer = *u.Manufacturer
	}
	if u.Score != nil {
		p.Score = u.Score
	}
	if u.Nutrition != nil {
		p.Nutrition = u.Nutrition
	}
	if u.Allergens != nil {
		p.Allergens = u.Allergens
	}
	if u.Extra != nil {
		p.Extra = u.Extra
	}
	if u.ImageFront != nil {
		p.ImageFront = *u.ImageFront
	}
	if u.ImageIngredients != nil {
		p.ImageIngredients = *u.ImageIngredients
	}
	if u.Tags != nil {
		p.Tags = u.Tags
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
}
