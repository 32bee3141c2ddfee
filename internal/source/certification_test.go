package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCertificationAPIFetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("barcode") != "4607034170003" {
			w.Write([]byte(`{"response": {}}`))
			return
		}
		w.Write([]byte(`{
			"response": {
				"title": "Молоко пастеризованное",
				"total_rating": 4.5,
				"description": "Цельное молоко, пастеризация",
				"category_name": "Молочные продукты",
				"manufacturer": "Молзавод №1",
				"thumbnail": "https://cdn.example.org/thumb.jpg",
				"research": {"image": "https://cdn.example.org/research.jpg"}
			}
		}`))
	}))
	defer server.Close()

	adapter := NewCertificationAPI(server.Client(), server.URL, nil)

	doc, outcome := adapter.Fetch(context.Background(), "4607034170003")
	if outcome != Sufficient {
		t.Fatalf("expected Sufficient, got %d", outcome)
	}
	if doc.Name != "Молоко пастеризованное" {
		t.Fatalf("unexpected name: %s", doc.Name)
	}
	if doc.Rating == nil || *doc.Rating != 4.5 {
		t.Fatalf("unexpected rating: %v", doc.Rating)
	}
	if doc.ImageFront != "https://cdn.example.org/thumb.jpg" {
		t.Fatalf("unexpected front image: %s", doc.ImageFront)
	}
	if doc.ImageIngredients != "https://cdn.example.org/research.jpg" {
		t.Fatalf("unexpected research image: %s", doc.ImageIngredients)
	}
	if doc.Fields["category_name"] != "Молочные продукты" {
		t.Fatalf("unexpected projected category: %v", doc.Fields["category_name"])
	}
	if doc.Extra["description"] != "Цельное молоко, пастеризация" {
		t.Fatalf("description missing from extra: %v", doc.Extra)
	}

	if _, outcome := adapter.Fetch(context.Background(), "88888888"); outcome != Absent {
		t.Fatalf("expected Absent for unknown barcode, got %d", outcome)
	}
}

func TestCertificationAPIFetchTitleWithoutDescription(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": {"title": "Сыр"}}`))
	}))
	defer server.Close()

	adapter := NewCertificationAPI(server.Client(), server.URL, nil)

	doc, outcome := adapter.Fetch(context.Background(), "12345678")
	if outcome != Insufficient {
		t.Fatalf("expected Insufficient, got %d", outcome)
	}
	if doc.Name != "Сыр" {
		t.Fatalf("partial document should keep the title, got %q", doc.Name)
	}
}

func TestCertificationAPIFetchServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewCertificationAPI(server.Client(), server.URL, nil)

	if _, outcome := adapter.Fetch(context.Background(), "12345678"); outcome != Absent {
		t.Fatalf("transient failure must map to Absent, got %d", outcome)
	}
}
