// Package analyzer wraps an OpenAI-compatible chat API to turn raw
// product data or package photos into a structured assessment.
package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"BarcodeScanner/internal/config"
	"BarcodeScanner/internal/domain"
	"BarcodeScanner/internal/ports"
)

// instructions is the shared analysis contract for both entry points:
// JSON-only output, the scoring rubric, and the field schema. Items
// outside food/personal-care come back as an empty object.
const instructions = "You are an expert in food product analysis, like Yuka." +
	"Return only a valid JSON object without any markdown formatting, code fences, or extra text, with this structure: " +
	"{" +
	"product_name: <string>," +
	"manufacturer: <string>," +
	"ingredients: <string>," +
	"allergens: <string>," +
	"overall_score: <number>," +
	"explanation_score: <string>," +
	"nutrition: {proteins: <number>, fats: <number>, carbohydrates: <number>, calories: <number>, kcal: <number>}," +
	"harmful_components: [{name: <string>, effect: <string>, recommendation: <string>, level: <string>, risk_group: <string>, severity: <string>}]," +
	"recommendedfor: <string>," +
	"frequency: <string>," +
	"alternatives: <string>," +
	"tags: [<string>, ...]" +
	"}" +
	"Only process food or personal care/hygiene products. If the item is outside these categories (e.g. electronics, tools, toys), return an empty JSON object: {} " +
	"If some data is missing, use null or an empty string." +
	"Translate all text values (not keys) to Russian. Ensure 'product_name' is natural Russian; translate it if needed." +
	"Assign a fair and objective 'score' from 0 to 100: " +
	"0-25 very unhealthy (many additives like E621, preservatives, flavor enhancers, high salt/fat); " +
	"25-50 poor quality (harmful additives or high calories/sodium); " +
	"50-75 acceptable (some additives, but balanced); " +
	"75-100 healthy (natural, few or no additives, good nutritional profile). " +
	"If the product has no harmful components, is made with natural ingredients, and is generally suitable for most people, the score must be higher than 85." +
	"Explanation_score must clearly justify the score, mentioning both harmful aspects (E-additives, fat, sugar, salt) and healthy ones (natural, vitamins); keep it in Russian, short and clear." +
	"List all harmful E-additives in both 'ingredients' and 'harmful_components'." +
	"In 'tags', include 3-6 useful labels like: 'продукты питания', 'гигиена', 'говядина', 'без глютена', 'полуфабрикаты'."

// placeholderText marks a degraded assessment after an internal failure.
const placeholderText = "unable to analyze"

// OpenAIGateway implements ports.Analyzer against chat-completion APIs.
// Both entry points degrade to a placeholder assessment on any failure;
// callers never see an error from this gateway.
type OpenAIGateway struct {
	endpoint    string
	textModel   string
	visionModel string
	apiKey      string
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ ports.Analyzer = (*OpenAIGateway)(nil)

// NewOpenAIGateway builds a gateway from configuration.
func NewOpenAIGateway(cfg config.AnalyzerConfig, logger *slog.Logger) *OpenAIGateway {
	return &OpenAIGateway{
		endpoint:    cfg.Endpoint,
		textModel:   cfg.TextModel,
		visionModel: cfg.VisionModel,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		logger:      logger,
	}
}

// AnalyzeData sends the projected source document for text-mode analysis.
func (g *OpenAIGateway) AnalyzeData(ctx context.Context, data map[string]any) domain.Assessment {
	input, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		g.warn("marshal analyzer input", "error", err)
		return placeholder()
	}

	output, err := g.complete(ctx, g.textModel, []map[string]any{
		{"role": "system", "content": instructions},
		{"role": "user", "content": string(input)},
	})
	if err != nil {
		g.warn("text analysis failed", "error", err)
		return placeholder()
	}
	return decodeAssessment(output)
}

// AnalyzeImages sends base64-encoded package photos for vision-mode
// analysis. The two-image flow expects a front shot and an ingredients
// label shot, in that order.
func (g *OpenAIGateway) AnalyzeImages(ctx context.Context, barcode string, jpegImages [][]byte) domain.Assessment {
	content := []map[string]any{
		{
			"type": "text",
			"text": fmt.Sprintf("Отсканируй и проанализируй упаковку продукта с баркодом %s. Приложены изображения. ", barcode) + instructions,
		},
	}
	for _, img := range jpegImages {
		content = append(content, map[string]any{
			"type": "image_url",
			"image_url": map[string]string{
				"url": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	output, err := g.complete(ctx, g.visionModel, []map[string]any{
		{"role": "system", "content": instructions},
		{"role": "user", "content": content},
	})
	if err != nil {
		g.warn("image analysis failed", "barcode", barcode, "error", err)
		return placeholder()
	}
	return decodeAssessment(output)
}

func (g *OpenAIGateway) complete(ctx context.Context, model string, messages []map[string]any) (string, error) {
	if g.apiKey == "" || g.endpoint == "" || model == "" {
		return "", fmt.Errorf("analyzer gateway misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":           model,
		"messages":        messages,
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("analyzer error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// decodeAssessment parses the model output as the structured schema.
// Unparseable output is preserved verbatim in Analysis rather than
// dropped; the merge step treats it like any other degraded result.
func decodeAssessment(output string) domain.Assessment {
	cleaned := stripFences(output)

	var assessment domain.Assessment
	if err := json.Unmarshal([]byte(cleaned), &assessment); err != nil {
		return domain.Assessment{Analysis: output}
	}
	return assessment
}

// stripFences removes markdown code fences some models wrap around JSON
// despite the instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func placeholder() domain.Assessment {
	return domain.Assessment{Analysis: placeholderText}
}

func (g *OpenAIGateway) warn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}
