// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"resume-chat-go/internal/config"
	"resume-chat-go/internal/model"
	"resume-chat-go/pkg/log"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// SearchMode 决定检索时如何组合向量与关键词信号。
type SearchMode string

const (
	// ModeHybrid 同时使用 kNN 与 BM25，是默认模式。
	ModeHybrid SearchMode = "hybrid"
	// ModeVector 只使用 kNN。
	ModeVector SearchMode = "vector"
)

// recallFactor 控制 kNN 候选数量相对 topK 的倍数。
const recallFactor = 30

// Client 封装了单个索引上的检索与写入操作。
type Client struct {
	es         *elasticsearch.Client
	index      string
	mode       SearchMode
	dimensions int
}

// NewClient 创建 Elasticsearch 客户端。
func NewClient(searchCfg config.SearchConfig, dimensions int, transport http.RoundTripper) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{searchCfg.URL},
		APIKey:    searchCfg.APIKey,
		Transport: transport,
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	mode := SearchMode(searchCfg.Mode)
	if mode == "" {
		mode = ModeHybrid
	}
	return &Client{es: client, index: searchCfg.IndexName, mode: mode, dimensions: dimensions}, nil
}

// IndexName 返回当前客户端操作的索引名。
func (c *Client) IndexName() string {
	return c.index
}

// EnsureIndex 检查索引是否存在，如果不存在则创建它
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("[ES] 检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("[ES] 索引 '%s' 已存在", c.index)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping(c.dimensions))),
	)
	if err != nil {
		log.Errorf("[ES] 创建索引 '%s' 失败: %v", c.index, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("[ES] 创建索引 '%s' 时 Elasticsearch 返回错误: %s", c.index, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("[ES] 索引 '%s' 创建成功", c.index)
	return nil
}

func indexMapping(dims int) string {
	return fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"id": { "type": "keyword" },
				"text": { "type": "text", "analyzer": "english" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"source": { "type": "keyword" },
				"chunk_id": { "type": "integer" },
				"model_version": { "type": "keyword" }
			}
		}
	}`, dims)
}

// Search 在索引中检索与 query 最相关的 topK 个片段。
func (c *Client) Search(ctx context.Context, query string, vector []float32, topK int) ([]model.Passage, error) {
	if topK <= 0 {
		topK = 4
	}
	body := c.buildQuery(query, vector, topK)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		log.Errorf("[ES] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		log.Errorf("[ES] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				ID     string              `json:"_id"`
				Score  float64             `json:"_score"`
				Source model.IndexDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	passages := make([]model.Passage, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		id := hit.Source.ID
		if id == "" {
			id = hit.ID
		}
		passages = append(passages, model.Passage{
			ID:    id,
			Text:  hit.Source.Text,
			Score: hit.Score,
			Metadata: model.PassageMetadata{
				Source:       hit.Source.Source,
				ChunkID:      hit.Source.ChunkID,
				ModelVersion: hit.Source.ModelVersion,
			},
		})
	}
	log.Debugf("[ES] 检索完成, mode: %s, hits: %d", c.mode, len(passages))
	return passages, nil
}

func (c *Client) buildQuery(query string, vector []float32, topK int) map[string]interface{} {
	knn := map[string]interface{}{
		"field":          "vector",
		"query_vector":   vector,
		"k":              topK * recallFactor,
		"num_candidates": topK * recallFactor,
	}
	body := map[string]interface{}{
		"knn":     knn,
		"size":    topK,
		"_source": []string{"id", "text", "source", "chunk_id", "model_version"},
	}
	if c.mode == ModeVector {
		knn["k"] = topK
		return body
	}

	normalized, phrase := normalizeQuery(query)
	boolQuery := map[string]interface{}{
		"must": map[string]interface{}{
			"match": map[string]interface{}{
				"text": normalized,
			},
		},
	}
	if phrase != "" {
		boolQuery["should"] = []map[string]interface{}{
			{
				"match_phrase": map[string]interface{}{
					"text": map[string]interface{}{
						"query": phrase,
						"boost": 3.0,
					},
				},
			},
		}
	}
	body["query"] = map[string]interface{}{"bool": boolQuery}
	body["rescore"] = map[string]interface{}{
		"window_size": topK * recallFactor,
		"query": map[string]interface{}{
			"rescore_query": map[string]interface{}{
				"match": map[string]interface{}{
					"text": map[string]interface{}{
						"query":    normalized,
						"operator": "or",
					},
				},
			},
			"query_weight":         0.2, // 保留部分 k-NN 分数
			"rescore_query_weight": 1.0, // BM25 分数权重
		},
	}
	return body
}

var (
	reKeep  = regexp.MustCompile(`[^\p{L}\p{N}+#.\s]+`)
	reSpace = regexp.MustCompile(`\s+`)
)

// normalizeQuery 对用户查询进行轻量去噪与短语提取。
// 返回值：规范化后的查询（用于 BM25/rescore）与核心短语（用于 match_phrase 兜底）。
func normalizeQuery(q string) (string, string) {
	if strings.TrimSpace(q) == "" {
		return q, ""
	}
	lower := " " + strings.ToLower(q) + " "
	stopPhrases := []string{" please ", " tell me ", " can you ", " could you ", " what is ", " what are ", " does ", " do ", " has ", " have ", " the ", "?"}
	for _, sp := range stopPhrases {
		lower = strings.ReplaceAll(lower, sp, " ")
	}
	kept := reKeep.ReplaceAllString(lower, " ")
	kept = strings.TrimSpace(reSpace.ReplaceAllString(kept, " "))
	if kept == "" {
		return q, ""
	}
	return kept, kept
}

// Upsert 以 bulk 方式写入文档，文档 ID 决定覆盖关系。
func (c *Client) Upsert(ctx context.Context, docs []model.IndexDocument) error {
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		action := map[string]interface{}{
			"index": map[string]interface{}{"_index": c.index, "_id": doc.ID},
		}
		if err := enc.Encode(action); err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	req := esapi.BulkRequest{
		Index:   c.index,
		Body:    &buf,
		Refresh: "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("[ES] 批量写入出错: %s", res.String())
		return fmt.Errorf("elasticsearch bulk returned an error: %s", res.Status())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		for _, item := range bulkResp.Items {
			for _, r := range item {
				if r.Status >= 300 {
					return fmt.Errorf("failed to index document %s: %s: %s", r.ID, r.Error.Type, r.Error.Reason)
				}
			}
		}
		return errors.New("elasticsearch bulk reported errors")
	}
	log.Infof("[ES] 成功写入 %d 个文档到索引 '%s'", len(docs), c.index)
	return nil
}
