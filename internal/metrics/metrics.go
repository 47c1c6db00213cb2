// Package metrics collects per-tool latency and success samples plus
// recovery-queue gauges, and renders them as JSON or Prometheus text.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	maxToolSamples  = 1000
	maxQueueSamples = 100
)

// ToolSample records one completed tool call.
type ToolSample struct {
	Tool      string
	Start     time.Time
	End       time.Time
	Duration  time.Duration
	Success   bool
	ErrorCode string
}

// QueueSample records one recovery-queue observation. The counters are
// cumulative over the process lifetime.
type QueueSample struct {
	Size      int
	Processed int
	Succeeded int
	Failed    int
	At        time.Time
}

// Collector is a process-scoped rolling buffer of samples. All methods
// are safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	start time.Time
	tools []ToolSample
	queue []QueueSample
}

// NewCollector starts an empty collector; uptime counts from now.
func NewCollector() *Collector {
	return &Collector{start: time.Now()}
}

// RecordTool appends a tool sample, dropping the oldest beyond the
// buffer cap.
func (c *Collector) RecordTool(s ToolSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools = append(c.tools, s)
	if len(c.tools) > maxToolSamples {
		c.tools = c.tools[len(c.tools)-maxToolSamples:]
	}
}

// RecordQueue appends a queue gauge snapshot.
func (c *Collector) RecordQueue(s QueueSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.At.IsZero() {
		s.At = time.Now()
	}
	c.queue = append(c.queue, s)
	if len(c.queue) > maxQueueSamples {
		c.queue = c.queue[len(c.queue)-maxQueueSamples:]
	}
}

// Reset drops all samples and restarts the uptime clock.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools = nil
	c.queue = nil
	c.start = time.Now()
}

// ToolSummary aggregates the samples of one tool.
type ToolSummary struct {
	Count     int     `json:"count"`
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	MeanMs    float64 `json:"meanMs"`
	P50Ms     float64 `json:"p50Ms"`
	P95Ms     float64 `json:"p95Ms"`
}

// QueueSummary is the latest queue gauge plus cumulative counters.
type QueueSummary struct {
	Size      int `json:"size"`
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Summary is the full derived view of the collector.
type Summary struct {
	Tools    map[string]ToolSummary `json:"tools"`
	Queue    QueueSummary           `json:"queue"`
	UptimeMs int64                  `json:"uptimeMs"`
}

// Summary derives per-tool aggregates from a copy of the buffers.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	tools := make([]ToolSample, len(c.tools))
	copy(tools, c.tools)
	queue := make([]QueueSample, len(c.queue))
	copy(queue, c.queue)
	start := c.start
	c.mu.Unlock()

	byTool := make(map[string][]ToolSample)
	for _, s := range tools {
		byTool[s.Tool] = append(byTool[s.Tool], s)
	}

	out := Summary{
		Tools:    make(map[string]ToolSummary, len(byTool)),
		UptimeMs: time.Since(start).Milliseconds(),
	}
	for name, samples := range byTool {
		var ts ToolSummary
		durations := make([]float64, 0, len(samples))
		var total float64
		for _, s := range samples {
			ts.Count++
			if s.Success {
				ts.Succeeded++
			} else {
				ts.Failed++
			}
			ms := float64(s.Duration.Microseconds()) / 1000
			durations = append(durations, ms)
			total += ms
		}
		sort.Float64s(durations)
		ts.MeanMs = total / float64(len(durations))
		ts.P50Ms = percentile(durations, 0.50)
		ts.P95Ms = percentile(durations, 0.95)
		out.Tools[name] = ts
	}

	if len(queue) > 0 {
		last := queue[len(queue)-1]
		out.Queue = QueueSummary{
			Size:      last.Size,
			Processed: last.Processed,
			Succeeded: last.Succeeded,
			Failed:    last.Failed,
		}
	}
	return out
}

// percentile uses nearest-rank on an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p * float64(len(sorted)))
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

// ToPrometheusFormat renders the summary as Prometheus text exposition.
func (c *Collector) ToPrometheusFormat() string {
	s := c.Summary()

	names := make([]string, 0, len(s.Tools))
	for name := range s.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder

	writeHeader := func(metric, help, kind string) {
		fmt.Fprintf(&b, "# HELP %s %s\n", metric, help)
		fmt.Fprintf(&b, "# TYPE %s %s\n", metric, kind)
	}

	writeHeader("mcp_tool_requests_total", "Total tool invocations.", "counter")
	for _, name := range names {
		fmt.Fprintf(&b, "mcp_tool_requests_total{tool=%q} %d\n", name, s.Tools[name].Count)
	}

	writeHeader("mcp_tool_success_total", "Successful tool invocations.", "counter")
	for _, name := range names {
		fmt.Fprintf(&b, "mcp_tool_success_total{tool=%q} %d\n", name, s.Tools[name].Succeeded)
	}

	writeHeader("mcp_tool_failure_total", "Failed tool invocations.", "counter")
	for _, name := range names {
		fmt.Fprintf(&b, "mcp_tool_failure_total{tool=%q} %d\n", name, s.Tools[name].Failed)
	}

	writeHeader("mcp_tool_duration_p50_ms", "Median tool duration in milliseconds.", "gauge")
	for _, name := range names {
		fmt.Fprintf(&b, "mcp_tool_duration_p50_ms{tool=%q} %.3f\n", name, s.Tools[name].P50Ms)
	}

	writeHeader("mcp_tool_duration_p95_ms", "95th percentile tool duration in milliseconds.", "gauge")
	for _, name := range names {
		fmt.Fprintf(&b, "mcp_tool_duration_p95_ms{tool=%q} %.3f\n", name, s.Tools[name].P95Ms)
	}

	writeHeader("mcp_tool_success_rate", "Success ratio per tool.", "gauge")
	for _, name := range names {
		ts := s.Tools[name]
		rate := 0.0
		if ts.Count > 0 {
			rate = float64(ts.Succeeded) / float64(ts.Count)
		}
		fmt.Fprintf(&b, "mcp_tool_success_rate{tool=%q} %.3f\n", name, rate)
	}

	writeHeader("mcp_index_queue_size", "Pending entries in the index recovery queue.", "gauge")
	fmt.Fprintf(&b, "mcp_index_queue_size %d\n", s.Queue.Size)

	return b.String()
}
