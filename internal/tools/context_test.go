package tools

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sgx-labs/notevault/internal/config"
)

// newRecoveryRegistry shrinks the queue's clocks so deferred index
// mutations replay within the test's window. MaxRetries is generous so
// early failed attempts cannot exhaust the entry before the index
// becomes writable again.
func newRecoveryRegistry(t *testing.T) (*Registry, *ExecContext) {
	t.Helper()

	vault := t.TempDir()
	cfg := config.Default()
	cfg.Vault.Path = vault
	cfg.Vault.IndexPath = filepath.Join(vault, ".notevault", "index.db")
	cfg.Recovery.MaxRetries = 20
	cfg.Recovery.BaseDelayMs = 1
	cfg.Recovery.WorkerIntervalMs = 5

	ec, err := NewExecContext(cfg)
	if err != nil {
		t.Fatalf("NewExecContext: %v", err)
	}
	t.Cleanup(ec.Teardown)
	return NewRegistry(ec), ec
}

// setIndexReadOnly flips the single index connection between rejecting
// and accepting writes, simulating a transient index failure.
func setIndexReadOnly(t *testing.T, ec *ExecContext, on bool) {
	t.Helper()
	mode := "OFF"
	if on {
		mode = "ON"
	}
	if _, err := ec.Index.Conn().Exec("PRAGMA query_only = " + mode); err != nil {
		t.Fatalf("toggle query_only: %v", err)
	}
}

func waitForCond(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDeferredIndexWriteReplays(t *testing.T) {
	r, ec := newRecoveryRegistry(t)

	setIndexReadOnly(t, ec, true)
	result := execute(t, r, "create_note", map[string]any{
		"title": "Deferred", "content": "body",
	})
	if result.Metadata["indexDeferred"] != true {
		t.Fatalf("expected deferred marker in result: %+v", result.Metadata)
	}
	uid := result.Metadata["uid"].(string)
	if row, _ := ec.Index.GetRow(uid); row != nil {
		t.Fatal("row should not exist while the index rejects writes")
	}

	// Once the index accepts writes again, the queue replays from disk.
	setIndexReadOnly(t, ec, false)
	waitForCond(t, "queue never replayed the index write", func() bool {
		row, _ := ec.Index.GetRow(uid)
		return row != nil
	})
	waitForCond(t, "queue should drain after the replay", func() bool {
		return ec.Queue.Status().Size == 0
	})

	row, err := ec.Index.GetRow(uid)
	if err != nil || row == nil || row.Title != "Deferred" {
		t.Errorf("replayed row = %+v, err = %v", row, err)
	}
}

func TestDeferredIndexDropsNoteDeletedMeanwhile(t *testing.T) {
	r, ec := newRecoveryRegistry(t)

	created := execute(t, r, "create_note", map[string]any{
		"title": "Ghost", "content": "body",
	})
	uid := created.Metadata["uid"].(string)
	if row, _ := ec.Index.GetRow(uid); row == nil {
		t.Fatal("create should index synchronously")
	}

	setIndexReadOnly(t, ec, true)
	updated := execute(t, r, "update_note", map[string]any{
		"uid": uid, "content": "edited",
	})
	if updated.Metadata["indexDeferred"] != true {
		t.Fatalf("expected deferred marker in result: %+v", updated.Metadata)
	}

	// The file vanishes before the replay runs; the stale row from the
	// original create must be dropped, not refreshed.
	if err := os.Remove(updated.Metadata["path"].(string)); err != nil {
		t.Fatalf("remove note file: %v", err)
	}
	setIndexReadOnly(t, ec, false)

	waitForCond(t, "stale row should be dropped after the replay", func() bool {
		row, _ := ec.Index.GetRow(uid)
		return row == nil
	})
	waitForCond(t, "queue should drain after the replay", func() bool {
		return ec.Queue.Status().Size == 0
	})
}
