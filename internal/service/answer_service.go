package service

import (
	"context"
	"fmt"
	"resume-chat-go/internal/model"
	"resume-chat-go/pkg/llm"
	"resume-chat-go/pkg/log"
	"strings"
	"time"
)

// DateLayout 是提示词中当前日期的格式，例如 "March 05, 2025"。
const DateLayout = "January 02, 2006"

// DefaultTopK 是每次检索返回的片段数。
const DefaultTopK = 4

// FakeResult 是离线模式下返回的固定结果，不会调用检索与模型。
var FakeResult = model.QueryResult{
	Input:   "Fake question",
	Context: []model.Passage{},
	Answer:  "This is a fake answer to test the solution without spending LLM tokens...",
}

const groundingTemplate = `You are an assistant that answers questions about the resume of {owner}.
Base every answer only on the resume context and the conversation history below.

### Context
Relevant excerpts from {owner}'s resume:
{context}
Current system date: {date}

### Conversation History
Previous exchanges between the user and the assistant:
{history}

### User Input
The user has just asked:
{input}

### Instructions
Using the context, the conversation history and the latest question, write a clear and accurate answer about **{owner}**'s qualifications, skills, experience and other resume details. Address the specific question asked.`

// AnswerOptions 配置 AnswerService。
type AnswerOptions struct {
	OwnerName string
	TopK      int
	// Fake 打开后直接返回 FakeResult。
	Fake bool
}

// AnswerService 基于检索结果生成回答。
type AnswerService interface {
	Answer(ctx context.Context, query, conversationWindow string, asOf time.Time) (*model.QueryResult, error)
}

type answerService struct {
	retrieval RetrievalService
	llmClient llm.Client
	opts      AnswerOptions
}

// NewAnswerService 创建一个新的 AnswerService 实例。
func NewAnswerService(retrieval RetrievalService, llmClient llm.Client, opts AnswerOptions) AnswerService {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &answerService{retrieval: retrieval, llmClient: llmClient, opts: opts}
}

// Answer 检索上下文、填充提示词并以 temperature 0 调用模型。
// 要么返回完整结果，要么返回错误，内部不重试。
func (s *answerService) Answer(ctx context.Context, query, conversationWindow string, asOf time.Time) (*model.QueryResult, error) {
	if s.opts.Fake {
		result := FakeResult
		result.Context = []model.Passage{}
		return &result, nil
	}

	passages, err := s.retrieval.Retrieve(ctx, query, s.opts.TopK)
	if err != nil {
		return nil, err
	}

	prompt := renderPrompt(s.opts.OwnerName, passages, asOf, conversationWindow, query)
	answer, err := s.llmClient.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.GenerationParams{Temperature: 0})
	if err != nil {
		log.Errorf("[AnswerService] 调用模型失败: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrAnswerGenerationFailed, err)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrAnswerGenerationFailed)
	}

	if passages == nil {
		passages = []model.Passage{}
	}
	return &model.QueryResult{Input: query, Context: passages, Answer: answer}, nil
}

func renderPrompt(owner string, passages []model.Passage, asOf time.Time, history, input string) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	r := strings.NewReplacer(
		"{owner}", owner,
		"{context}", strings.Join(texts, "\n\n"),
		"{date}", asOf.Format(DateLayout),
		"{history}", history,
		"{input}", input,
	)
	return r.Replace(groundingTemplate)
}
