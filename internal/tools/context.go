// Package tools is the registry and dispatcher for the vault's MCP
// tool catalog: declared input schemas, argument validation, policy
// wrapping, and the handlers themselves.
package tools

import (
	"context"
	"time"

	"github.com/sgx-labs/notevault/internal/config"
	"github.com/sgx-labs/notevault/internal/index"
	"github.com/sgx-labs/notevault/internal/logging"
	"github.com/sgx-labs/notevault/internal/metrics"
	"github.com/sgx-labs/notevault/internal/note"
	"github.com/sgx-labs/notevault/internal/policy"
	"github.com/sgx-labs/notevault/internal/recovery"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// ExecContext bundles the shared state every handler needs: the note
// store, the search index, the recovery queue, and the metrics
// collector.
type ExecContext struct {
	Cfg     *config.Config
	Store   *note.Store
	Index   *index.DB
	Queue   *recovery.Queue
	Metrics *metrics.Collector
	Policy  policy.Policy
}

// NewExecContext opens the index and wires the recovery queue to it.
func NewExecContext(cfg *config.Config) (*ExecContext, error) {
	db, err := index.Open(cfg.Vault.IndexPath)
	if err != nil {
		return nil, err
	}

	ec := &ExecContext{
		Cfg:     cfg,
		Store:   note.NewStore(cfg.Vault.Path),
		Index:   db,
		Metrics: metrics.NewCollector(),
		Policy: policy.Policy{
			TimeoutMs:  cfg.Server.TimeoutMs,
			MaxRetries: cfg.Server.Retries,
		},
	}
	ec.Queue = recovery.NewQueue(ec.applyRecovery, recovery.Options{
		MaxRetries:     cfg.Recovery.MaxRetries,
		BaseDelay:      time.Duration(cfg.Recovery.BaseDelayMs) * time.Millisecond,
		WorkerInterval: time.Duration(cfg.Recovery.WorkerIntervalMs) * time.Millisecond,
	})
	return ec, nil
}

// Teardown stops the queue worker and closes the index.
func (ec *ExecContext) Teardown() {
	ec.Queue.Cleanup()
	if err := ec.Index.Close(); err != nil {
		logging.Warnf("close index: %v", err)
	}
}

// applyRecovery replays a deferred index mutation. The disk is the
// source of truth: an index replay reloads the note from disk rather
// than trusting whatever the original call held.
func (ec *ExecContext) applyRecovery(ctx context.Context, e recovery.Entry) error {
	switch e.Op {
	case recovery.OpRemove:
		return ec.Index.RemoveNote(e.UID)
	case recovery.OpIndex:
		n, err := ec.Store.FindByUID(e.UID)
		if err != nil {
			// Deleted from disk since the enqueue; drop the stale row.
			if vaulterr.Is(err, vaulterr.ResourceNotFound) {
				return ec.Index.RemoveNote(e.UID)
			}
			return err
		}
		return ec.Index.IndexNote(n)
	default:
		return vaulterr.New(vaulterr.Internal, "unknown recovery op %q", e.Op)
	}
}

// deferIndex enqueues a failed index mutation and logs the deferral.
// Returns true so callers can mark the response with a warning.
func (ec *ExecContext) deferIndex(op recovery.Operation, uid, path string, cause error) bool {
	logging.Warnf("index %s failed for %s, deferring to recovery queue: %v", op, uid, cause)
	ec.Queue.Enqueue(recovery.Entry{
		UID:       uid,
		Op:        op,
		Path:      path,
		LastError: cause.Error(),
	})
	return true
}

// sampleQueue pushes the current queue status into the metrics gauges.
func (ec *ExecContext) sampleQueue() {
	st := ec.Queue.Status()
	ec.Metrics.RecordQueue(metrics.QueueSample{
		Size:      st.Size,
		Processed: st.Processed,
		Succeeded: st.Succeeded,
		Failed:    st.Failed,
	})
}
