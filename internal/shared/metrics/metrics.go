package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	tutorialJobsStartedTotal   atomic.Uint64
	tutorialJobsCompletedTotal atomic.Uint64
	tutorialJobsFailedTotal    atomic.Uint64
	tutorialJobsCancelledTotal atomic.Uint64
	chapterCacheHitsTotal      atomic.Uint64
	chapterCacheMissesTotal    atomic.Uint64
	llmCallsTotal              atomic.Uint64
	llmRetriesTotal            atomic.Uint64

	queueJobsReceivedTotal  atomic.Uint64
	queueJobsCompletedTotal atomic.Uint64
	queueJobsFailedTotal    atomic.Uint64
	queueJobsDroppedTotal   atomic.Uint64

	jobDuration = newHistogram([]float64{1000, 5000, 15000, 30000, 60000, 120000, 300000, 600000, 1800000})
)

// IncJobStarted increments the started counter.
func IncJobStarted() {
	tutorialJobsStartedTotal.Add(1)
}

// IncJobCompleted increments the completed counter.
func IncJobCompleted() {
	tutorialJobsCompletedTotal.Add(1)
}

// IncJobFailed increments the failed counter.
func IncJobFailed() {
	tutorialJobsFailedTotal.Add(1)
}

// IncJobCancelled increments the cancelled counter.
func IncJobCancelled() {
	tutorialJobsCancelledTotal.Add(1)
}

// IncChapterCacheHit increments the chapter cache hit counter.
func IncChapterCacheHit() {
	chapterCacheHitsTotal.Add(1)
}

// IncChapterCacheMiss increments the chapter cache miss counter.
func IncChapterCacheMiss() {
	chapterCacheMissesTotal.Add(1)
}

// IncLLMCall increments the language-model call counter.
func IncLLMCall() {
	llmCallsTotal.Add(1)
}

// IncLLMRetry increments the language-model retry counter.
func IncLLMRetry() {
	llmRetriesTotal.Add(1)
}

// IncQueueJobReceived increments the queue messages received counter.
func IncQueueJobReceived() {
	queueJobsReceivedTotal.Add(1)
}

// IncQueueJobCompleted increments the queue messages completed counter.
func IncQueueJobCompleted() {
	queueJobsCompletedTotal.Add(1)
}

// IncQueueJobFailed increments the queue messages failed counter.
func IncQueueJobFailed() {
	queueJobsFailedTotal.Add(1)
}

// IncQueueJobDropped counts unrecoverable messages deleted without processing.
func IncQueueJobDropped() {
	queueJobsDroppedTotal.Add(1)
}

// ObserveJobDurationMs records a pipeline duration in milliseconds.
func ObserveJobDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	jobDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "tutorial_jobs_started_total", "Total tutorial jobs started", tutorialJobsStartedTotal.Load())
	writeCounter(&buf, "tutorial_jobs_completed_total", "Total tutorial jobs completed", tutorialJobsCompletedTotal.Load())
	writeCounter(&buf, "tutorial_jobs_failed_total", "Total tutorial jobs failed", tutorialJobsFailedTotal.Load())
	writeCounter(&buf, "tutorial_jobs_cancelled_total", "Total tutorial jobs cancelled", tutorialJobsCancelledTotal.Load())
	writeCounter(&buf, "chapter_cache_hits_total", "Total chapter cache hits", chapterCacheHitsTotal.Load())
	writeCounter(&buf, "chapter_cache_misses_total", "Total chapter cache misses", chapterCacheMissesTotal.Load())
	writeCounter(&buf, "llm_calls_total", "Total language model calls issued", llmCallsTotal.Load())
	writeCounter(&buf, "llm_retries_total", "Total language model call retries", llmRetriesTotal.Load())
	writeCounter(&buf, "queue_jobs_received_total", "Total queue messages received", queueJobsReceivedTotal.Load())
	writeCounter(&buf, "queue_jobs_completed_total", "Total queue messages completed", queueJobsCompletedTotal.Load())
	writeCounter(&buf, "queue_jobs_failed_total", "Total queue messages failed", queueJobsFailedTotal.Load())
	writeCounter(&buf, "queue_jobs_dropped_total", "Total unrecoverable queue messages dropped", queueJobsDroppedTotal.Load())
	writeHistogram(&buf, "tutorial_job_duration_ms", "Tutorial job duration in milliseconds", jobDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
