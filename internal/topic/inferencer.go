package topic

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/umt-ai/unibot/internal/ai"
)

// NoValidTopics is the defined outcome when the conversation carries no
// usable terms. It is a topic label, not an error.
const NoValidTopics = "No valid topics found"

// Inferencer derives a session's topic label from its full utterance
// history. Implementations recompute from scratch on every call; anything
// incremental hides behind this interface.
type Inferencer interface {
	InferTopic(ctx context.Context, utterances []string) (string, error)
}

const (
	ldaPasses   = 25
	ldaTopTerms = 3
	ldaSeed     = 42
)

// LDAInferencer fits a single-topic LDA model over the preprocessed
// utterances, takes the top weighted terms and has the generation service
// compress them into one descriptive phrase. A single topic turns the
// model into a keyword extractor for the session's dominant subject.
type LDAInferencer struct {
	gen ai.IGenerator
}

func NewLDAInferencer(gen ai.IGenerator) *LDAInferencer {
	return &LDAInferencer{gen: gen}
}

func (l *LDAInferencer) InferTopic(ctx context.Context, utterances []string) (string, error) {
	texts := make([][]string, 0, len(utterances))
	for _, utterance := range utterances {
		tokens := Preprocess(utterance)
		if len(tokens) == 0 {
			continue
		}
		texts = append(texts, tokens)
	}
	if len(texts) == 0 {
		return NoValidTopics, nil
	}

	dict := BuildDictionary(texts)
	corpus := make([][]TermCount, 0, len(texts))
	for _, text := range texts {
		bow := dict.BOW(text)
		if len(bow) == 0 {
			continue
		}
		corpus = append(corpus, bow)
	}
	if len(corpus) == 0 {
		return NoValidTopics, nil
	}

	model := FitLDA(corpus, dict, 1, ldaPasses, ldaSeed)
	terms := model.TopTerms(0, ldaTopTerms)
	if len(terms) == 0 {
		return NoValidTopics, nil
	}
	logutil.GetLogger(ctx).Debug("topic terms extracted", zap.Strings("terms", terms))

	prompt := "Summarize the following keywords into a single topic: " + strings.Join(terms, " ")
	label, err := l.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return label, nil
}
