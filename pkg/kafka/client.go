// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"resume-chat-go/internal/config"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/tasks"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts 是同一任务失败多少次后放弃重试。
const maxAttempts = 3

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.ResumeIngestTask) error
}

// AttemptCounter 记录每个任务的失败次数。
type AttemptCounter interface {
	Incr(ctx context.Context, taskKey string) (int64, error)
	Reset(ctx context.Context, taskKey string) error
}

// Producer 发送简历入库任务。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokerList(cfg.Brokers)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}}
}

// PublishResumeTask 发送一个简历入库任务到 Kafka。
func (p *Producer) PublishResumeTask(ctx context.Context, task tasks.ResumeIngestTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.FileMD5),
		Value: taskBytes,
	})
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// messageReader 是 Consumer 依赖的 kafka.Reader 能力。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer 消费简历入库任务。
// 消费组中未提交的消息不会在同一会话内重新投递，所以失败的任务在原地重试，
// 处理完成或放弃之后才提交 offset。
type Consumer struct {
	reader    messageReader
	topic     string
	processor TaskProcessor
	attempts  AttemptCounter
	backoff   func(attempt int64) time.Duration
}

// NewConsumer 创建消费者；在调用 Run 之前不会连接 broker。
func NewConsumer(cfg config.KafkaConfig, processor TaskProcessor, attempts AttemptCounter) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokerList(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{
		reader:    r,
		topic:     cfg.Topic,
		processor: processor,
		attempts:  attempts,
		backoff:   linearBackoff,
	}
}

func linearBackoff(attempt int64) time.Duration {
	return time.Duration(attempt) * 2 * time.Second
}

// Run 阻塞地消费消息，直到 ctx 被取消。
func (c *Consumer) Run(ctx context.Context) error {
	log.Infof("[KafkaConsumer] 消费者已启动，正在监听主题 '%s'", c.topic)
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Errorf("[KafkaConsumer] 关闭消费者失败: %v", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("[KafkaConsumer] 消费者已停止")
				return nil
			}
			return fmt.Errorf("从 Kafka 读取消息失败: %w", err)
		}

		log.Infof("[KafkaConsumer] 收到 Kafka 消息: offset %d", m.Offset)
		if !c.handle(ctx, m.Value) {
			// 停机时中断的任务不提交，重启后会重新投递
			log.Info("[KafkaConsumer] 消费者已停止")
			return nil
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Errorf("[KafkaConsumer] 提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// handle 处理一条消息，失败时退避重试，直到成功或累计失败 maxAttempts 次。
// 失败次数记在 Redis 中，跨重启累计。返回 false 表示 ctx 已取消、不应提交 offset。
func (c *Consumer) handle(ctx context.Context, value []byte) bool {
	var task tasks.ResumeIngestTask
	if err := json.Unmarshal(value, &task); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("[KafkaConsumer] 无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return true
	}

	log.Infof("[KafkaConsumer] 开始处理简历任务: MD5=%s, FileName=%s", task.FileMD5, task.FileName)
	var localAttempts int64
	for {
		err := c.processor.Process(ctx, task)
		if err == nil {
			log.Infof("[KafkaConsumer] 简历任务处理成功: MD5=%s", task.FileMD5)
			_ = c.attempts.Reset(ctx, task.FileMD5)
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		log.Errorf("[KafkaConsumer] 处理简历任务失败: MD5=%s, Error: %v", task.FileMD5, err)
		localAttempts++
		attempts, incErr := c.attempts.Incr(ctx, task.FileMD5)
		if incErr != nil {
			// Redis 不可用时退回本进程内的计数
			log.Warnf("[KafkaConsumer] 记录失败次数出错: %v", incErr)
			attempts = localAttempts
		}
		if attempts >= maxAttempts {
			log.Errorf("[KafkaConsumer] 任务多次失败(>=%d)，放弃重试: MD5=%s", maxAttempts, task.FileMD5)
			_ = c.attempts.Reset(ctx, task.FileMD5)
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff(attempts)):
		}
	}
}

func brokerList(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// RedisAttemptCounter 使用 Redis 计数失败次数，键在 24 小时后过期。
type RedisAttemptCounter struct {
	rdb *redis.Client
}

// NewRedisAttemptCounter 创建基于 Redis 的失败计数器。
func NewRedisAttemptCounter(rdb *redis.Client) *RedisAttemptCounter {
	return &RedisAttemptCounter{rdb: rdb}
}

func attemptsKey(taskKey string) string {
	return "kafka:attempts:" + taskKey
}

func (r *RedisAttemptCounter) Incr(ctx context.Context, taskKey string) (int64, error) {
	key := attemptsKey(taskKey)
	n, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = r.rdb.Expire(ctx, key, 24*time.Hour).Err()
	return n, nil
}

func (r *RedisAttemptCounter) Reset(ctx context.Context, taskKey string) error {
	return r.rdb.Del(ctx, attemptsKey(taskKey)).Err()
}
