// Package summary turns extracted PDF text into a markdown summary.
//
// The Service owns the prompt and the post-processing; a Backend only knows
// how to send one system prompt and one block of text to a model. Three
// backends ship with the server (OpenAI, Gemini and OpenRouter) and exactly
// one is active per process, picked by SUMMARY_BACKEND.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/Shimizu-Technology/sommaire-api/internal/config"
)

// ErrGenerationFailed is returned when the backend errors or produces nothing.
var ErrGenerationFailed = errors.New("failed to generate summary")

// SystemPrompt is sent with every request, whatever the backend.
const SystemPrompt = `You are a social media content expert who makes complex document easy and engaging to read. Create a viral-style summary using emojis that match the document's context. Format your response in markdown with proper line breaks.

# [Create a meaningful title based on the document's content]
One powerful sentence that captures the document's essence.
• Additional key overview point (if needed)

# Document Details
• Type: [Document Type]
• For: [Target Audience]

# Key Highlights
• First key point
• Second key point
• Third key point

# Why It Matters
• A short, impactful paragraph explaining real-world impact

# Main Points
• Main insight or finding
• Key strength or advantage
• Important outcome or result

# Pro Tips
• First practical recommendation
• Second valuable insight
• Third actionable advice

# Key Terms to Know
• First key term: Simple explanation
• Second key term: Simple explanation

# Bottom line
• The most important takeway

Note: Every single point must start with "• " followed by an emoji and a space. Do not use numbered lists. Always maintain this exact format for all points in all sections.

Never deviate from this format. Every line that contains content must start with "• " followed by an emoji.
`

const truncationMarker = "\n\n[Document truncated due to length...]"

// Backend sends a prompt and document text to a language model.
//
// Go Pattern: Small interfaces. Anything with these two methods can
// summarize, which is how the tests swap in a fake model.
type Backend interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, text string) (content, model string, err error)
}

// Result holds the generated summary.
type Result struct {
	Summary string `json:"summary"`
	Title   string `json:"title"`
	Model   string `json:"model"`
	Backend string `json:"backend"`
}

// Service generates summaries with a single backend.
type Service struct {
	backend       Backend
	maxInputChars int
}

// New creates a summary service. maxInputChars <= 0 disables truncation.
func New(backend Backend, maxInputChars int) *Service {
	return &Service{backend: backend, maxInputChars: maxInputChars}
}

// Backend returns the name of the active backend.
func (s *Service) Backend() string {
	return s.backend.Name()
}

// Summarize asks the backend for a summary of text. It makes one attempt;
// there is no retry and no fallback to another backend.
func (s *Service) Summarize(ctx context.Context, text string) (*Result, error) {
	input := truncate(text, s.maxInputChars)

	log.Printf("🤖 Generating summary with %s (%d chars)", s.backend.Name(), len(input))

	content, model, err := s.backend.Complete(ctx, SystemPrompt, input)
	if err != nil {
		if IsOpen(err) {
			log.Printf("⚡ Summary backend %s unavailable, breaker is open", s.backend.Name())
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrGenerationFailed, s.backend.Name(), err)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: %s returned an empty summary", ErrGenerationFailed, s.backend.Name())
	}

	return &Result{
		Summary: content,
		Title:   ExtractTitle(content),
		Model:   model,
		Backend: s.backend.Name(),
	}, nil
}

// ExtractTitle returns the text of the first "# " heading, without the
// surrounding brackets or leading emoji the prompt tends to produce.
func ExtractTitle(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "# ") {
			continue
		}
		title := strings.TrimSpace(strings.TrimPrefix(line, "# "))
		title = strings.Trim(title, "[]")
		title = strings.TrimLeftFunc(title, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		return strings.TrimSpace(title)
	}
	return ""
}

// truncate caps text at max runes and appends a marker when it cuts.
func truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + truncationMarker
}

// NewBackend builds the backend named by cfg.SummaryBackend, wrapped in a
// circuit breaker when SUMMARY_BREAKER_ENABLED is set.
func NewBackend(cfg *config.Config) (Backend, error) {
	var b Backend
	switch cfg.SummaryBackend {
	case config.BackendOpenAI:
		b = NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case config.BackendGemini:
		b = NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
	case config.BackendOpenRouter:
		b = NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	default:
		return nil, fmt.Errorf("unknown summary backend %q", cfg.SummaryBackend)
	}

	if cfg.SummaryBreakerEnabled {
		b = NewGuard(b, GuardSettings{})
	}
	return b, nil
}
