// Package pipeline 定义了简历入库的核心流程。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"resume-chat-go/internal/metrics"
	"resume-chat-go/internal/model"
	"resume-chat-go/pkg/embedding"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/storage"
	"resume-chat-go/pkg/tasks"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const (
	chunkSize    = 1000
	chunkOverlap = 100
	// embedBatchSize 是单次 embeddings 请求携带的分块数。
	embedBatchSize = 16
	// embedConcurrency 限制同时进行的 embeddings 请求数。
	embedConcurrency = 4
)

// TextExtractor 从文件中提取纯文本，由 tika.Client 实现。
type TextExtractor interface {
	ExtractText(ctx context.Context, fileReader io.Reader, fileName string) (string, error)
}

// Indexer 把文档写入检索索引。
type Indexer interface {
	Upsert(ctx context.Context, docs []model.IndexDocument) error
}

// Processor 封装了简历处理的所有依赖和逻辑。
type Processor struct {
	store           storage.ObjectStore
	extractor       TextExtractor
	embeddingClient embedding.Client
	indexer         Indexer
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(store storage.ObjectStore, extractor TextExtractor, embeddingClient embedding.Client, indexer Indexer) *Processor {
	return &Processor{
		store:           store,
		extractor:       extractor,
		embeddingClient: embeddingClient,
		indexer:         indexer,
	}
}

// Process 下载简历、提取文本、切块、向量化并写入索引。
// 文档 ID 由文件 MD5 与分块序号决定，重复处理同一文件会覆盖旧文档。
func (p *Processor) Process(ctx context.Context, task tasks.ResumeIngestTask) error {
	log.Infof("[Processor] 开始处理简历, FileMD5: %s, FileName: %s", task.FileMD5, task.FileName)

	// 1. 从对象存储下载文件
	object, err := p.store.GetObject(ctx, task.ObjectName)
	if err != nil {
		return fmt.Errorf("下载文件失败: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		return fmt.Errorf("读取对象流失败: %w", err)
	}
	if size == 0 {
		log.Warnf("[Processor] 文件 '%s' 内容为空, 处理中止", task.FileName)
		return errors.New("文件内容为空")
	}

	// 2. 使用 Tika 提取文本
	textContent, err := p.extractor.ExtractText(ctx, bytes.NewReader(buf.Bytes()), task.FileName)
	if err != nil {
		return fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	textContent = strings.TrimSpace(textContent)
	if textContent == "" {
		return errors.New("提取的文本内容为空")
	}
	log.Infof("[Processor] 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	// 3. 文本切块
	chunks := splitText(textContent, chunkSize, chunkOverlap)
	log.Infof("[Processor] 文本分块完成, 共生成 %d 个分块", len(chunks))

	// 4. 并发向量化
	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return err
	}

	// 5. 写入索引
	docs := make([]model.IndexDocument, len(chunks))
	for i, chunk := range chunks {
		docs[i] = model.IndexDocument{
			ID:           fmt.Sprintf("%s_%d", task.FileMD5, i),
			Text:         chunk,
			Vector:       vectors[i],
			Source:       task.FileName,
			ChunkID:      i,
			ModelVersion: p.embeddingClient.Model(),
		}
	}
	if err := p.indexer.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("写入索引失败: %w", err)
	}
	metrics.IngestedPassages.Add(float64(len(docs)))

	log.Infof("[Processor] 简历处理成功完成, FileMD5: %s, 分块数: %d", task.FileMD5, len(docs))
	return nil
}

func (p *Processor) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for start := 0; start < len(chunks); start += embedBatchSize {
		start := start
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			batch, err := p.embeddingClient.CreateEmbeddings(gctx, chunks[start:end])
			if err != nil {
				return fmt.Errorf("分块 %d-%d 向量化失败: %w", start, end-1, err)
			}
			// 每个 goroutine 只写自己负责的下标区间
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Errorf("[Processor] 向量化失败: %v", err)
		return nil, err
	}
	return vectors, nil
}

// splitText 将长文本按指定大小和重叠进行切分。
func splitText(text string, chunkSize int, chunkOverlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := chunkSize - chunkOverlap
	if step <= 0 {
		step = chunkSize
	}

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
