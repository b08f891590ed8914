package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/fintrack/internal/domain"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

const analyzePrompt = "Analyze these financial transactions and provide 3 actionable insights or tips to save money.\n" +
	"Format the response as a JSON array of objects with 'title', 'description', and 'severity' (one of: 'info', 'warning', 'success').\n" +
	"Transactions: "

const receiptPrompt = "Extract the merchant name, total amount, date, and suggest a category for this receipt. Return as JSON."

// GeminiClient talks to the Gemini API. It implements Analyzer.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a client for the Gemini developer API.
// An empty model selects DefaultModelName.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewGeminiClient: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiClient{client: client, model: model}, nil
}

// promptTransaction is the reduced view of a transaction sent to the model.
type promptTransaction struct {
	Amount   float64                `json:"amount"`
	Type     domain.TransactionType `json:"type"`
	Category string                 `json:"category,omitempty"`
	Date     string                 `json:"date"`
}

func buildAnalyzePrompt(txs []domain.Transaction, categories []domain.Category) (string, error) {
	rows := make([]promptTransaction, 0, len(txs))
	for _, tx := range txs {
		row := promptTransaction{
			Amount: tx.Amount,
			Type:   domain.NormalizeType(tx.Type),
			Date:   tx.Date.UTC().Format(time.RFC3339),
		}
		if c := domain.FindCategory(categories, tx.CategoryID); c != nil {
			row.Category = c.Name
		}
		rows = append(rows, row)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("buildAnalyzePrompt: marshal transactions: %w", err)
	}
	return analyzePrompt + string(data), nil
}

var insightsSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"severity":    {Type: genai.TypeString},
		},
		Required: []string{"title", "description", "severity"},
	},
}

var receiptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"merchant":   {Type: genai.TypeString},
		"amount":     {Type: genai.TypeNumber},
		"date":       {Type: genai.TypeString},
		"category":   {Type: genai.TypeString},
		"confidence": {Type: genai.TypeNumber},
	},
	Required: []string{"amount", "date", "category"},
}

// AnalyzeFinances asks the model for three saving tips over txs.
func (g *GeminiClient) AnalyzeFinances(ctx context.Context, txs []domain.Transaction, categories []domain.Category) ([]domain.FinancialInsight, error) {
	prompt, err := buildAnalyzePrompt(txs, categories)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	raw, err := g.generate(ctx, contents, insightsSchema)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeFinances: %w", err)
	}

	var out []domain.FinancialInsight
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &out); err != nil {
		return nil, fmt.Errorf("AnalyzeFinances: unmarshal JSON: %w\nraw response: %s", err, raw)
	}
	return out, nil
}

// ScanReceipt extracts merchant, amount, date and a category hint from a
// receipt image.
func (g *GeminiClient) ScanReceipt(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptScanResult, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("ScanReceipt: empty image")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
				{Text: receiptPrompt},
			},
		},
	}

	raw, err := g.generate(ctx, contents, receiptSchema)
	if err != nil {
		return nil, fmt.Errorf("ScanReceipt: %w", err)
	}

	var out domain.ReceiptScanResult
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &out); err != nil {
		return nil, fmt.Errorf("ScanReceipt: unmarshal JSON: %w\nraw response: %s", err, raw)
	}
	return &out, nil
}

func (g *GeminiClient) generate(ctx context.Context, contents []*genai.Content, schema *genai.Schema) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	rawText := resp.Text()
	if strings.TrimSpace(rawText) == "" {
		return "", ErrEmptyResponse
	}
	return rawText, nil
}

// cleanModelJSON strips Markdown fences and any text around the outermost
// JSON array or object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
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

	openCh, closeCh := "[", "]"
	if obj, arr := strings.Index(s, "{"), strings.Index(s, "["); obj != -1 && (arr == -1 || obj < arr) {
		openCh, closeCh = "{", "}"
	}
	if start := strings.Index(s, openCh); start != -1 {
		if end := strings.LastIndex(s, closeCh); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
