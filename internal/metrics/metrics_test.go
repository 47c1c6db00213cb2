package metrics

import (
	"strings"
	"testing"
	"time"
)

func sample(tool string, ms int, success bool) ToolSample {
	d := time.Duration(ms) * time.Millisecond
	end := time.Now()
	return ToolSample{
		Tool:     tool,
		Start:    end.Add(-d),
		End:      end,
		Duration: d,
		Success:  success,
	}
}

func TestSummaryAggregates(t *testing.T) {
	c := NewCollector()
	c.RecordTool(sample("search_memory", 10, true))
	c.RecordTool(sample("search_memory", 20, true))
	c.RecordTool(sample("search_memory", 30, false))
	c.RecordTool(sample("create_note", 5, true))

	s := c.Summary()
	if len(s.Tools) != 2 {
		t.Fatalf("tools = %d", len(s.Tools))
	}

	search := s.Tools["search_memory"]
	if search.Count != 3 || search.Succeeded != 2 || search.Failed != 1 {
		t.Errorf("search summary = %+v", search)
	}
	if search.MeanMs < 19 || search.MeanMs > 21 {
		t.Errorf("mean = %v", search.MeanMs)
	}
	if search.P50Ms != 20 {
		t.Errorf("p50 = %v", search.P50Ms)
	}
	if search.P95Ms != 30 {
		t.Errorf("p95 = %v", search.P95Ms)
	}

	if s.UptimeMs < 0 {
		t.Errorf("uptime = %d", s.UptimeMs)
	}
}

func TestQueueSummaryUsesLatestSample(t *testing.T) {
	c := NewCollector()
	c.RecordQueue(QueueSample{Size: 5, Processed: 1, Succeeded: 1})
	c.RecordQueue(QueueSample{Size: 2, Processed: 4, Succeeded: 3, Failed: 1})

	q := c.Summary().Queue
	if q.Size != 2 || q.Processed != 4 || q.Succeeded != 3 || q.Failed != 1 {
		t.Errorf("queue summary = %+v", q)
	}
}

func TestToolBufferCap(t *testing.T) {
	c := NewCollector()
	for i := 0; i < maxToolSamples+50; i++ {
		c.RecordTool(sample("list_notes", 1, true))
	}
	if got := c.Summary().Tools["list_notes"].Count; got != maxToolSamples {
		t.Errorf("count = %d, want trimmed to %d", got, maxToolSamples)
	}
}

func TestPercentileNearestRank(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if p := percentile(sorted, 0.50); p != 6 {
		t.Errorf("p50 = %v", p)
	}
	if p := percentile(sorted, 0.95); p != 10 {
		t.Errorf("p95 = %v", p)
	}
	if p := percentile(nil, 0.5); p != 0 {
		t.Errorf("empty percentile = %v", p)
	}
}

func TestToPrometheusFormat(t *testing.T) {
	c := NewCollector()
	c.RecordTool(sample("read_note", 10, true))
	c.RecordTool(sample("read_note", 10, false))
	c.RecordQueue(QueueSample{Size: 3})

	out := c.ToPrometheusFormat()

	want := []string{
		"# HELP mcp_tool_requests_total",
		"# TYPE mcp_tool_requests_total counter",
		`mcp_tool_requests_total{tool="read_note"} 2`,
		`mcp_tool_success_total{tool="read_note"} 1`,
		`mcp_tool_failure_total{tool="read_note"} 1`,
		`mcp_tool_success_rate{tool="read_note"} 0.500`,
		"mcp_index_queue_size 3",
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q\n%s", w, out)
		}
	}
}

func TestReset(t *testing.T) {
	c := NewCollector()
	c.RecordTool(sample("read_note", 10, true))
	c.RecordQueue(QueueSample{Size: 3})

	c.Reset()

	s := c.Summary()
	if len(s.Tools) != 0 || s.Queue.Size != 0 {
		t.Errorf("summary after reset = %+v", s)
	}
}
