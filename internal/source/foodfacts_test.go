package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFoodFactsFetchSufficient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/product/4607034170003.json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"status": 1,
			"product": {
				"product_name": "Молоко",
				"ingredients_text": "молоко цельное",
				"brands": "Простоквашино",
				"image_front_url": "https://images.example.org/front.jpg",
				"image_ingredients_url": "https://images.example.org/ingredients.jpg",
				"nutriments": {"proteins_100g": 3.2},
				"unlisted_field": "dropped"
			}
		}`))
	}))
	defer server.Close()

	adapter := NewFoodFactsAPI(server.Client(), server.URL, nil)

	doc, outcome := adapter.Fetch(context.Background(), "4607034170003")
	if outcome != Sufficient {
		t.Fatalf("expected Sufficient, got %d", outcome)
	}
	if doc.Name != "Молоко" {
		t.Fatalf("unexpected name: %s", doc.Name)
	}
	if doc.IngredientsText != "молоко цельное" {
		t.Fatalf("unexpected ingredients: %s", doc.IngredientsText)
	}
	if doc.Manufacturer != "Простоквашино" {
		t.Fatalf("unexpected manufacturer: %s", doc.Manufacturer)
	}

	// Unlisted raw fields are dropped; missing allow-listed fields are
	// projected as empty strings, not nulls.
	if _, ok := doc.Fields["unlisted_field"]; ok {
		t.Fatal("unlisted field leaked through the projection")
	}
	if doc.Fields["allergens"] != "" {
		t.Fatalf("missing allow-listed field should be empty string, got %v", doc.Fields["allergens"])
	}
}

func TestFoodFactsFetchNameOnlyIsInsufficient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": 1, "product": {"product_name": "Молоко"}}`))
	}))
	defer server.Close()

	adapter := NewFoodFactsAPI(server.Client(), server.URL, nil)

	if _, outcome := adapter.Fetch(context.Background(), "4607034170003"); outcome != Insufficient {
		t.Fatalf("name without ingredients must be Insufficient, got %d", outcome)
	}
}

func TestFoodFactsFetchNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": 0}`))
	}))
	defer server.Close()

	adapter := NewFoodFactsAPI(server.Client(), server.URL, nil)

	if _, outcome := adapter.Fetch(context.Background(), "4607034170003"); outcome != Absent {
		t.Fatalf("status 0 must be Absent, got %d", outcome)
	}
}

func TestFoodFactsGenericNameFallback(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": 1, "product": {"generic_name": "Йогурт", "ingredients_text": "молоко, закваска"}}`))
	}))
	defer server.Close()

	adapter := NewFoodFactsAPI(server.Client(), server.URL, nil)

	doc, outcome := adapter.Fetch(context.Background(), "4607034170003")
	if outcome != Sufficient {
		t.Fatalf("expected Sufficient, got %d", outcome)
	}
	if doc.Name != "Йогурт" {
		t.Fatalf("generic_name fallback failed, got %q", doc.Name)
	}
}
