package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"resume-chat-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProcessor 按 MD5 返回预设的失败次数，之后成功。
type stubProcessor struct {
	failures map[string]int
	calls    map[string]int
	onCall   func()
}

func newStubProcessor(failures map[string]int) *stubProcessor {
	return &stubProcessor{failures: failures, calls: map[string]int{}}
}

func (s *stubProcessor) Process(ctx context.Context, task tasks.ResumeIngestTask) error {
	s.calls[task.FileMD5]++
	if s.onCall != nil {
		s.onCall()
	}
	if s.failures[task.FileMD5] < 0 || s.calls[task.FileMD5] <= s.failures[task.FileMD5] {
		return errors.New("tika down")
	}
	return nil
}

type memCounter struct {
	counts map[string]int64
	err    error
}

func (m *memCounter) Incr(ctx context.Context, key string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memCounter) Reset(ctx context.Context, key string) error {
	delete(m.counts, key)
	return nil
}

// fakeReader 依次返回队列中的消息，队列耗尽后取消 ctx。
type fakeReader struct {
	queue     []kafka.Message
	committed []int64
	cancel    context.CancelFunc
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.queue[0]
	r.queue = r.queue[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func taskMessage(t *testing.T, md5 string, offset int64) kafka.Message {
	t.Helper()
	b, err := json.Marshal(tasks.ResumeIngestTask{FileMD5: md5, ObjectName: "resume/" + md5 + "/cv.pdf", FileName: "cv.pdf"})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: b}
}

func newTestConsumer(p TaskProcessor, counter AttemptCounter) *Consumer {
	return &Consumer{
		processor: p,
		attempts:  counter,
		backoff:   func(int64) time.Duration { return 0 },
	}
}

func TestRun_RetriesFailedTaskBeforeCommitting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newStubProcessor(map[string]int{"a": 2})
	counter := &memCounter{counts: map[string]int64{}}
	reader := &fakeReader{queue: []kafka.Message{taskMessage(t, "a", 10), taskMessage(t, "b", 11)}, cancel: cancel}
	c := newTestConsumer(p, counter)
	c.reader = reader

	require.NoError(t, c.Run(ctx))

	assert.Equal(t, 3, p.calls["a"])
	assert.Equal(t, 1, p.calls["b"])
	assert.Equal(t, []int64{10, 11}, reader.committed)
	assert.NotContains(t, counter.counts, "a")
	assert.True(t, reader.closed)
}

func TestRun_GivesUpAfterMaxAttemptsAndMovesOn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newStubProcessor(map[string]int{"a": -1})
	reader := &fakeReader{queue: []kafka.Message{taskMessage(t, "a", 1), taskMessage(t, "b", 2)}, cancel: cancel}
	c := newTestConsumer(p, &memCounter{counts: map[string]int64{}})
	c.reader = reader

	require.NoError(t, c.Run(ctx))

	assert.Equal(t, maxAttempts, p.calls["a"])
	assert.Equal(t, 1, p.calls["b"])
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestHandle_AttemptsCarryOverAcrossRestarts(t *testing.T) {
	p := newStubProcessor(map[string]int{"a": -1})
	// 重启前已经失败过两次
	counter := &memCounter{counts: map[string]int64{"a": 2}}
	c := newTestConsumer(p, counter)

	assert.True(t, c.handle(context.Background(), taskMessage(t, "a", 0).Value))
	assert.Equal(t, 1, p.calls["a"])
}

func TestHandle_CounterFailureFallsBackToLocalCount(t *testing.T) {
	p := newStubProcessor(map[string]int{"a": -1})
	c := newTestConsumer(p, &memCounter{err: errors.New("redis down")})

	assert.True(t, c.handle(context.Background(), taskMessage(t, "a", 0).Value))
	assert.Equal(t, maxAttempts, p.calls["a"])
}

func TestHandle_CancelledDuringRetryIsNotCommitted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := newStubProcessor(map[string]int{"a": -1})
	p.onCall = cancel
	c := newTestConsumer(p, &memCounter{counts: map[string]int64{}})

	assert.False(t, c.handle(ctx, taskMessage(t, "a", 0).Value))
	assert.Equal(t, 1, p.calls["a"])
}

func TestHandle_MalformedMessageIsCommitted(t *testing.T) {
	p := newStubProcessor(nil)
	c := newTestConsumer(p, &memCounter{counts: map[string]int64{}})
	assert.True(t, c.handle(context.Background(), []byte("{not json")))
	assert.Empty(t, p.calls)
}

func TestBrokerList(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, brokerList(" k1:9092, ,k2:9092"))
}
