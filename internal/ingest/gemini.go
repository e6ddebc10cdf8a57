package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ddmitrov/fincore/internal/domain"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.0-flash"

// GeminiParser implements DraftParser on top of the Gemini API. The client
// reads its API key from the environment (GOOGLE_API_KEY / GEMINI_API_KEY).
type GeminiParser struct {
	model           string
	defaultCurrency string
}

// NewGeminiParser returns a parser using the given model name, falling back
// to DefaultModelName when empty. defaultCurrency is applied when the input
// does not name a currency.
func NewGeminiParser(model, defaultCurrency string) *GeminiParser {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiParser{model: model, defaultCurrency: defaultCurrency}
}

var _ DraftParser = (*GeminiParser)(nil)

func (p *GeminiParser) ParseVoice(ctx context.Context, audio []byte, language string) (*domain.TransactionDraft, error) {
	mimeType := detectAudioMIME(audio)
	if mimeType == "" {
		return nil, domain.ErrUnsupportedAudioFormat
	}

	parts := []*genai.Part{
		{Text: buildVoicePrompt(language)},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: audio}},
	}
	fields, rawText, err := p.generate(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("ParseVoice: %w", err)
	}
	return p.finish(fields, rawText, domain.ModalityVoice, language)
}

func (p *GeminiParser) ParseReceipt(ctx context.Context, image []byte, language string) (*domain.TransactionDraft, error) {
	mimeType := detectImageMIME(image)
	if mimeType == "" {
		return nil, domain.ErrUnsupportedImageFormat
	}

	parts := []*genai.Part{
		{Text: buildReceiptPrompt(language)},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
	}
	fields, rawText, err := p.generate(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("ParseReceipt: %w", err)
	}
	return p.finish(fields, rawText, domain.ModalityReceipt, language)
}

func (p *GeminiParser) ParseText(ctx context.Context, text, language string) (*domain.TransactionDraft, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrNoTransactionFound
	}

	parts := []*genai.Part{{Text: buildTextPrompt(text, language)}}
	fields, rawText, err := p.generate(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("ParseText: %w", err)
	}
	return p.finish(fields, rawText, domain.ModalityText, language)
}

func (p *GeminiParser) ParseTextWithImage(ctx context.Context, text string, image []byte, mimeType, language string) (*domain.TransactionDraft, error) {
	if strings.TrimSpace(text) == "" && len(image) == 0 {
		return nil, domain.ErrNoTransactionFound
	}

	parts := []*genai.Part{{Text: buildTextWithImagePrompt(text, language)}}
	if len(image) > 0 {
		if detected := detectImageMIME(image); detected != "" {
			mimeType = detected
		} else if mimeType == "" {
			return nil, domain.ErrUnsupportedImageFormat
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}})
	}
	fields, rawText, err := p.generate(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("ParseTextWithImage: %w", err)
	}
	return p.finish(fields, rawText, domain.ModalityTextImage, language)
}

// finish builds the draft and attaches the verbatim model response so the
// parsing run can retain it.
func (p *GeminiParser) finish(fields map[string]interface{}, rawText string, modality domain.Modality, language string) (*domain.TransactionDraft, error) {
	draft, err := draftFromModelOutput(fields, modality, language, p.defaultCurrency, time.Now())
	if err != nil {
		return nil, err
	}
	draft.RawModelOutput = rawText
	return draft, nil
}

// generate sends one prompt to Gemini and decodes the response into a
// generic JSON object, returning the verbatim response text alongside it.
// Temperature 0 keeps parse results stable for identical inputs.
func (p *GeminiParser) generate(ctx context.Context, parts []*genai.Part) (map[string]interface{}, string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}

	resp, err := client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, "", fmt.Errorf("generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, "", fmt.Errorf("empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, "", fmt.Errorf("unmarshal JSON: %w\nraw response: %s", err, rawText)
	}
	return parsed, rawText, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk the model
// sometimes emits despite instructions.
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

	// Keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
