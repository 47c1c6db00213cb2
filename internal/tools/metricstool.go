package tools

import (
	"context"
)

type getMetricsInput struct {
	Format string `json:"format"`
	Reset  bool   `json:"reset"`
}

func handleGetMetrics(ctx context.Context, ec *ExecContext, args map[string]any) (Result, error) {
	var in getMetricsInput
	if err := decodeArgs(args, &in); err != nil {
		return Result{}, err
	}

	var result Result
	if in.Format == "prometheus" {
		text := ec.Metrics.ToPrometheusFormat()
		result = Result{
			Text:     text,
			Metadata: map[string]any{"format": "prometheus"},
		}
	} else {
		summary := ec.Metrics.Summary()
		result = jsonResult(map[string]any{
			"format":  "json",
			"metrics": summary,
		})
	}

	if in.Reset {
		ec.Metrics.Reset()
	}
	return result, nil
}
