package nlp

import (
	"context"
	"regexp"
	"strings"

	"github.com/healthflow-ai/platform/pkg/common/logger"
	"github.com/healthflow-ai/platform/pkg/common/models"
	"github.com/healthflow-ai/platform/pkg/observability/metrics"
)

// EntityExtractor extracts labelled clinical concepts from free text.
// Implementations must return a category->surface-strings mapping with
// exact duplicates removed within a category, preserving first-seen order.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) (models.EntityExtractionResult, error)
}

// KeywordExtractor is the deterministic fallback path: case-insensitive
// match of the text against fixed condition and medication vocabularies.
// Terms match on word boundaries so short abbreviations like "mi" do not
// fire inside longer words. Categories with no match are omitted.
type KeywordExtractor struct {
	conditions  []vocabTerm
	medications []vocabTerm
}

type vocabTerm struct {
	term string
	re   *regexp.Regexp
}

func NewKeywordExtractor(vocab Vocabulary) *KeywordExtractor {
	return &KeywordExtractor{
		conditions:  compileTerms(vocab.Conditions),
		medications: compileTerms(vocab.Medications),
	}
}

func compileTerms(terms []string) []vocabTerm {
	compiled := make([]vocabTerm, 0, len(terms))
	for _, term := range terms {
		trimmed := strings.ToLower(strings.TrimSpace(term))
		if trimmed == "" {
			continue
		}
		compiled = append(compiled, vocabTerm{
			term: trimmed,
			re:   regexp.MustCompile(`\b` + regexp.QuoteMeta(trimmed) + `\b`),
		})
	}
	return compiled
}

func (k *KeywordExtractor) Extract(_ context.Context, text string) (models.EntityExtractionResult, error) {
	result := models.EntityExtractionResult{}
	if text == "" {
		return result, nil
	}

	lowered := strings.ToLower(text)

	if conditions := matchTerms(k.conditions, lowered); len(conditions) > 0 {
		result["conditions"] = conditions
	}
	if medications := matchTerms(k.medications, lowered); len(medications) > 0 {
		result["medications"] = medications
	}

	return result, nil
}

func matchTerms(terms []vocabTerm, lowered string) []string {
	var found []string
	for _, entry := range terms {
		if entry.re.MatchString(lowered) {
			found = append(found, entry.term)
		}
	}
	return found
}

// Pipeline fronts the model-backed path with the keyword fallback. The model
// is probed once at construction; an inference failure degrades to the
// fallback and is logged, never surfaced to the caller.
type Pipeline struct {
	model    EntityExtractor
	fallback EntityExtractor
}

func NewPipeline(model EntityExtractor, fallback EntityExtractor) *Pipeline {
	if model != nil {
		logger.Log.Info("NER model path enabled")
	} else {
		logger.Log.Warn("NER model unavailable, using keyword extraction only")
	}
	return &Pipeline{model: model, fallback: fallback}
}

func (p *Pipeline) Extract(ctx context.Context, text string) (models.EntityExtractionResult, error) {
	if text == "" {
		return models.EntityExtractionResult{}, nil
	}

	if p.model != nil {
		// One retry before giving up on the model for this text.
		for attempt := 0; attempt < 2; attempt++ {
			result, err := p.model.Extract(ctx, text)
			if err == nil {
				return result, nil
			}
			if attempt == 0 {
				logger.Log.WithError(err).Warn("entity extraction via model failed, retrying once")
				continue
			}
			logger.Log.WithError(err).Error("entity extraction via model failed, falling back to keywords")
		}
	}

	metrics.IncNLPFallback()
	return p.fallback.Extract(ctx, text)
}
