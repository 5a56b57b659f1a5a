package kb

import (
	"context"
	"fmt"
	"strings"
)

const (
	defaultMaxContextChars = 6000

	// InsufficientKnowledgeResponse is returned without invoking the
	// generative model when retrieval found nothing.
	InsufficientKnowledgeResponse = "I'm sorry, I couldn't find anything in the knowledge base related to your question. Please try rephrasing it, or contact a support agent directly."

	synthesizerSystemPrompt = "You are a helpdesk support assistant. Answer the client's question using only the historical support answers provided as context. " +
		"If different answers apply to different scenarios (for example activation versus reactivation), explain the difference explicitly rather than picking one. " +
		"Be clear, confident and professional, and keep the answer under 1600 characters."
)

// Generator is the black-box generative model: one system prompt, one user
// prompt, one completion.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Synthesizer assembles retrieved chunks into a bounded context block and
// asks the generative model for a single answer.
type Synthesizer struct {
	generator       Generator
	maxContextChars int
}

func NewSynthesizer(generator Generator, maxContextChars int) *Synthesizer {
	if maxContextChars <= 0 {
		maxContextChars = defaultMaxContextChars
	}
	return &Synthesizer{generator: generator, maxContextChars: maxContextChars}
}

// Synthesize produces the final answer for a query from its retrieved
// chunks. With no chunks it short-circuits to the fixed insufficient
// knowledge response. A model failure wraps ErrSynthesis; no partial answer
// is ever returned.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, matches []Match) (string, error) {
	if len(matches) == 0 {
		return InsufficientKnowledgeResponse, nil
	}

	contextBlock := s.assembleContext(matches)
	user := fmt.Sprintf("Context (historical support answers):\n%s\n\nClient question: %s\n\nAnswer:", contextBlock, query)

	answer, err := s.generator.Generate(ctx, synthesizerSystemPrompt, user)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	return strings.TrimSpace(answer), nil
}

// assembleContext joins chunk texts in retrieval order (highest similarity
// first), dropping from the tail when the block would exceed the model's
// input budget. The first chunk is always included, truncated if it alone is
// over budget. The budget counts runes, the same unit the chunker cuts in.
func (s *Synthesizer) assembleContext(matches []Match) string {
	const sep = "\n---\n"

	var b strings.Builder
	b.WriteString("---")
	used := len("---")
	for i, m := range matches {
		runes := []rune(m.Chunk.Text)
		pieceRunes := 1 + len(runes) + len(sep)
		if used+pieceRunes > s.maxContextChars {
			if i > 0 {
				break
			}
			keep := s.maxContextChars - used - len(sep) - 1
			if keep < 0 {
				keep = 0
			}
			if keep > len(runes) {
				keep = len(runes)
			}
			b.WriteString("\n" + string(runes[:keep]) + sep)
			break
		}
		b.WriteString("\n" + m.Chunk.Text + sep)
		used += pieceRunes
	}
	return strings.TrimSuffix(b.String(), "\n")
}
