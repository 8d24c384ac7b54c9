package topic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	label   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.label, nil
}

func TestInferTopicEmptyConversation(t *testing.T) {
	gen := &fakeGenerator{label: "unused"}
	inferencer := NewLDAInferencer(gen)
	label, err := inferencer.InferTopic(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, NoValidTopics, label)
	require.Empty(t, gen.prompts)
}

func TestInferTopicAllUtterancesDiscarded(t *testing.T) {
	gen := &fakeGenerator{label: "unused"}
	inferencer := NewLDAInferencer(gen)
	label, err := inferencer.InferTopic(context.Background(), []string{"!!!", "a", "to"})
	require.NoError(t, err)
	require.Equal(t, NoValidTopics, label)
	require.Empty(t, gen.prompts)
}

func TestInferTopicCompressesKeywordsViaGenerator(t *testing.T) {
	gen := &fakeGenerator{label: "Exam schedule questions"}
	inferencer := NewLDAInferencer(gen)
	label, err := inferencer.InferTopic(context.Background(), []string{
		"when is the exam schedule announced",
		"exam schedule for the fall semester",
		"midterm exam dates",
	})
	require.NoError(t, err)
	require.Equal(t, "Exam schedule questions", label)
	require.Len(t, gen.prompts, 1)
	require.True(t, strings.HasPrefix(gen.prompts[0], "Summarize the following keywords into a single topic: "))
	require.Contains(t, gen.prompts[0], "exam")
}

func TestInferTopicSingleTermConversation(t *testing.T) {
	gen := &fakeGenerator{label: "Registration"}
	inferencer := NewLDAInferencer(gen)
	label, err := inferencer.InferTopic(context.Background(), []string{"registration registration"})
	require.NoError(t, err)
	require.Equal(t, "Registration", label)
	require.Len(t, gen.prompts, 1)
}

func TestInferTopicPropagatesGeneratorFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream boom")}
	inferencer := NewLDAInferencer(gen)
	_, err := inferencer.InferTopic(context.Background(), []string{"exam schedule details"})
	require.Error(t, err)
}
