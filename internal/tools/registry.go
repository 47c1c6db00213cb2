package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/sgx-labs/notevault/internal/logging"
	"github.com/sgx-labs/notevault/internal/metrics"
	"github.com/sgx-labs/notevault/internal/policy"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// Result is what a handler produces: a user-facing text rendering and
// a machine-readable payload that travels in the result metadata.
type Result struct {
	Text     string
	Metadata map[string]any
	IsError  bool
}

// Handler consumes validated arguments and the execution context.
type Handler func(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error)

// Tool is one catalog entry.
type Tool struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Handler     Handler

	resolved *jsonschema.Resolved
}

// Registry is the static tool catalog plus the dispatch pipeline.
type Registry struct {
	ec    *ExecContext
	tools map[string]*Tool
	order []string
}

// NewRegistry builds the catalog. Schema resolution failures are
// programming errors and panic at startup.
func NewRegistry(ec *ExecContext) *Registry {
	r := &Registry{
		ec:    ec,
		tools: make(map[string]*Tool),
	}
	for _, t := range catalog() {
		resolved, err := t.Schema.Resolve(nil)
		if err != nil {
			panic(fmt.Sprintf("tool %s: invalid schema: %v", t.Name, err))
		}
		t.resolved = resolved
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r
}

// List returns the catalog in registration order.
func (r *Registry) List() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Execute runs one tool call through the full pipeline: shim,
// validation, policy merge, logging, metrics, handler.
func (r *Registry) Execute(ctx context.Context, name string, rawArgs map[string]any, override policy.Policy) (Result, error) {
	tool, ok := r.tools[name]
	if !ok {
		return Result{}, vaulterr.New(vaulterr.MCPInvalidRequest, "unknown tool %q", name)
	}

	if rawArgs == nil {
		rawArgs = map[string]any{}
	}
	args := shimArgs(rawArgs)

	if err := tool.resolved.Validate(args); err != nil {
		return Result{}, vaulterr.Wrap(vaulterr.SchemaValidation, err, "invalid arguments for %s", name).
			WithMeta("tool", name)
	}

	p := policy.Merge(policy.Default(), r.ec.Policy, override)
	p.OnRetry = func(attempt int, err error) {
		logging.Warnf("tool.retry %s attempt=%d: %v", name, attempt, err)
	}

	logging.Debugf("tool.start %s input=%s", name, maskPreview(args))
	start := time.Now()

	var result Result
	err := p.Do(ctx, func(ctx context.Context) error {
		var herr error
		result, herr = tool.Handler(ctx, r.ec, args)
		return herr
	})

	sample := metrics.ToolSample{
		Tool:     name,
		Start:    start,
		End:      time.Now(),
		Duration: time.Since(start),
		Success:  err == nil,
	}
	if err != nil {
		sample.ErrorCode = string(vaulterr.CodeOf(err))
		logging.Debugf("tool.failure %s duration=%s code=%s", name, sample.Duration, sample.ErrorCode)
	} else {
		logging.Debugf("tool.success %s duration=%s", name, sample.Duration)
	}
	r.ec.Metrics.RecordTool(sample)
	r.ec.sampleQueue()

	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// secretKeyRe matches argument values that look like credentials so the
// debug preview never leaks them.
var secretKeyRe = regexp.MustCompile(`(?i)(token|secret|password|api_?key)`)

const previewMax = 200

// maskPreview renders arguments for debug logs: secret-looking fields
// masked, total length capped.
func maskPreview(args map[string]any) string {
	masked := make(map[string]any, len(args))
	for k, v := range args {
		if secretKeyRe.MatchString(k) {
			masked[k] = "***"
			continue
		}
		masked[k] = v
	}
	raw, err := json.Marshal(masked)
	if err != nil {
		return "<unprintable>"
	}
	s := string(raw)
	if len(s) > previewMax {
		s = s[:previewMax] + "..."
	}
	return s
}
