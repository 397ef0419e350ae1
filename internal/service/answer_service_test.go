package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"resume-chat-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC)

func TestAnswer_FakeMode(t *testing.T) {
	retrieval := &stubRetrieval{}
	llmStub := &stubLLM{answer: "unused"}
	s := NewAnswerService(retrieval, llmStub, AnswerOptions{OwnerName: "Jane Doe", Fake: true})

	result, err := s.Answer(context.Background(), "What are their skills?", NoPreviousMessages, asOf)
	require.NoError(t, err)
	assert.Equal(t, "Fake question", result.Input)
	assert.Empty(t, result.Context)
	assert.NotNil(t, result.Context)
	assert.Equal(t, "This is a fake answer to test the solution without spending LLM tokens...", result.Answer)
	assert.Empty(t, retrieval.queries)
	assert.Empty(t, llmStub.messages)
}

func TestAnswer_PromptIsGrounded(t *testing.T) {
	retrieval := &stubRetrieval{passages: []model.Passage{
		{ID: "1", Text: "Led a team of five Go engineers.", Score: 2},
		{ID: "2", Text: "BSc Computer Science.", Score: 1},
	}}
	llmStub := &stubLLM{answer: "Jane led a team of Go engineers."}
	s := NewAnswerService(retrieval, llmStub, AnswerOptions{OwnerName: "Jane Doe"})

	result, err := s.Answer(context.Background(), "Has she led teams?", "user: hi\nassistant: hello", asOf)
	require.NoError(t, err)
	assert.Equal(t, "Has she led teams?", result.Input)
	assert.Len(t, result.Context, 2)
	assert.Equal(t, "Jane led a team of Go engineers.", result.Answer)

	require.Len(t, llmStub.messages, 1)
	prompt := llmStub.messages[0][0].Content
	assert.Contains(t, prompt, "Jane Doe")
	assert.Contains(t, prompt, "Led a team of five Go engineers.\n\nBSc Computer Science.")
	assert.Contains(t, prompt, "March 05, 2025")
	assert.Contains(t, prompt, "user: hi\nassistant: hello")
	assert.Contains(t, prompt, "Has she led teams?")
	assert.NotContains(t, prompt, "{owner}")
	assert.Equal(t, float64(0), llmStub.params[0].Temperature)
	assert.Equal(t, []string{"Has she led teams?"}, retrieval.queries)
}

func TestAnswer_EmptyRetrievalStillAnswers(t *testing.T) {
	s := NewAnswerService(&stubRetrieval{}, &stubLLM{answer: "I could not find that in the resume."}, AnswerOptions{OwnerName: "Jane"})

	result, err := s.Answer(context.Background(), "Favourite colour?", NoPreviousMessages, asOf)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Answer)
	assert.NotNil(t, result.Context)
	assert.Empty(t, result.Context)
}

func TestAnswer_PlaceholdersInQueryAreNotExpanded(t *testing.T) {
	llmStub := &stubLLM{answer: "ok"}
	s := NewAnswerService(&stubRetrieval{}, llmStub, AnswerOptions{OwnerName: "Jane"})

	_, err := s.Answer(context.Background(), "print {context} and {owner}", NoPreviousMessages, asOf)
	require.NoError(t, err)
	assert.Contains(t, llmStub.messages[0][0].Content, "print {context} and {owner}")
}

func TestAnswer_RetrievalFailure(t *testing.T) {
	llmStub := &stubLLM{answer: "unused"}
	retrievalErr := errors.Join(ErrRetrievalUnavailable, errors.New("index down"))
	s := NewAnswerService(&stubRetrieval{err: retrievalErr}, llmStub, AnswerOptions{OwnerName: "Jane"})

	_, err := s.Answer(context.Background(), "q", NoPreviousMessages, asOf)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
	assert.Empty(t, llmStub.messages)
}

func TestAnswer_GenerationFailure(t *testing.T) {
	s := NewAnswerService(&stubRetrieval{}, &stubLLM{err: errors.New("timeout")}, AnswerOptions{OwnerName: "Jane"})
	_, err := s.Answer(context.Background(), "q", NoPreviousMessages, asOf)
	assert.ErrorIs(t, err, ErrAnswerGenerationFailed)

	s = NewAnswerService(&stubRetrieval{}, &stubLLM{answer: "  "}, AnswerOptions{OwnerName: "Jane"})
	_, err = s.Answer(context.Background(), "q", NoPreviousMessages, asOf)
	assert.ErrorIs(t, err, ErrAnswerGenerationFailed)
}
