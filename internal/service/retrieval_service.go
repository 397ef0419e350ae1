package service

import (
	"context"
	"fmt"
	"resume-chat-go/internal/model"
	"resume-chat-go/pkg/embedding"
	"resume-chat-go/pkg/log"
)

// VectorIndex 是检索索引需要提供的能力，由 es.Client 实现。
type VectorIndex interface {
	Search(ctx context.Context, query string, vector []float32, topK int) ([]model.Passage, error)
	Upsert(ctx context.Context, docs []model.IndexDocument) error
}

// RetrievalService 把向量化与索引检索组合在一起。
type RetrievalService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Search(ctx context.Context, queryText string, queryVector []float32, topK int) ([]model.Passage, error)
	// Retrieve 先向量化 query 再做混合检索。
	Retrieve(ctx context.Context, query string, topK int) ([]model.Passage, error)
	Upsert(ctx context.Context, docs []model.IndexDocument) error
}

type retrievalService struct {
	embeddingClient embedding.Client
	index           VectorIndex
}

// NewRetrievalService 创建一个新的 RetrievalService 实例。
func NewRetrievalService(embeddingClient embedding.Client, index VectorIndex) RetrievalService {
	return &retrievalService{embeddingClient: embeddingClient, index: index}
}

func (s *retrievalService) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := s.embeddingClient.CreateEmbedding(ctx, text)
	if err != nil {
		log.Errorf("[RetrievalService] 向量化查询失败: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}
	return vector, nil
}

func (s *retrievalService) Search(ctx context.Context, queryText string, queryVector []float32, topK int) ([]model.Passage, error) {
	passages, err := s.index.Search(ctx, queryText, queryVector, topK)
	if err != nil {
		log.Errorf("[RetrievalService] 检索失败: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}
	return passages, nil
}

func (s *retrievalService) Retrieve(ctx context.Context, query string, topK int) ([]model.Passage, error) {
	vector, err := s.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	passages, err := s.Search(ctx, query, vector, topK)
	if err != nil {
		return nil, err
	}
	log.Infof("[RetrievalService] 检索到 %d 个片段, topK: %d", len(passages), topK)
	return passages, nil
}

func (s *retrievalService) Upsert(ctx context.Context, docs []model.IndexDocument) error {
	return s.index.Upsert(ctx, docs)
}
