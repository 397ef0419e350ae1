// Package metrics 定义服务暴露给 Prometheus 的指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 问答结果的 status 标签取值。
const (
	StatusOK               = "ok"
	StatusQuotaExceeded    = "quota_exceeded"
	StatusQuotaUnavailable = "quota_unavailable"
	StatusRetrievalFailed  = "retrieval_failed"
	StatusGenerationFailed = "generation_failed"
)

var (
	AnswersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resume_chat_answers_total",
		Help: "Answer cycles by outcome.",
	}, []string{"status"})

	AnswerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "resume_chat_answer_duration_seconds",
		Help:    "Time spent retrieving context and generating an answer.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resume_chat_quota_rejections_total",
		Help: "Questions rejected because the user reached the message limit.",
	})

	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resume_chat_persist_failures_total",
		Help: "Answered turns that could not be written to the conversation history.",
	})

	IngestedPassages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resume_chat_ingested_passages_total",
		Help: "Resume passages written to the search index.",
	})
)
