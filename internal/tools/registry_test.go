package tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sgx-labs/notevault/internal/config"
	"github.com/sgx-labs/notevault/internal/policy"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// fastPolicy keeps retry delays negligible when a test expects errors.
func fastPolicy() policy.Policy {
	return policy.Policy{BaseDelayMs: 1, MaxDelayMs: 2}
}

func newTestRegistry(t *testing.T) (*Registry, *ExecContext) {
	t.Helper()

	vault := t.TempDir()
	cfg := config.Default()
	cfg.Vault.Path = vault
	cfg.Vault.IndexPath = filepath.Join(vault, ".notevault", "index.db")
	cfg.Server.Mode = "prod"

	ec, err := NewExecContext(cfg)
	if err != nil {
		t.Fatalf("NewExecContext: %v", err)
	}
	t.Cleanup(ec.Teardown)
	return NewRegistry(ec), ec
}

func execute(t *testing.T, r *Registry, tool string, args map[string]any) Result {
	t.Helper()
	result, err := r.Execute(context.Background(), tool, args, fastPolicy())
	if err != nil {
		t.Fatalf("%s: %v", tool, err)
	}
	return result
}

func TestListCatalog(t *testing.T) {
	r, _ := newTestRegistry(t)

	tools := r.List()
	if len(tools) != 14 {
		t.Errorf("catalog size = %d", len(tools))
	}
	for _, tool := range tools {
		if tool.Name == "" || tool.Description == "" || tool.Schema == nil {
			t.Errorf("incomplete tool entry %+v", tool)
		}
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Execute(context.Background(), "summon_demon", nil, fastPolicy())
	if !vaulterr.Is(err, vaulterr.MCPInvalidRequest) {
		t.Errorf("code = %v, want MCP_INVALID_REQUEST", vaulterr.CodeOf(err))
	}
}

func TestExecuteValidatesArguments(t *testing.T) {
	r, _ := newTestRegistry(t)

	// content is required.
	_, err := r.Execute(context.Background(), "create_note",
		map[string]any{"title": "No body"}, fastPolicy())
	if !vaulterr.Is(err, vaulterr.SchemaValidation) {
		t.Errorf("code = %v, want SCHEMA_VALIDATION_ERROR", vaulterr.CodeOf(err))
	}

	// Wrong type for a declared property.
	_, err = r.Execute(context.Background(), "create_note",
		map[string]any{"title": "T", "content": "c", "category": "Inbox"}, fastPolicy())
	if !vaulterr.Is(err, vaulterr.SchemaValidation) {
		t.Errorf("bad category code = %v", vaulterr.CodeOf(err))
	}

	// An empty title would produce a note no strict load could read back.
	_, err = r.Execute(context.Background(), "create_note",
		map[string]any{"title": "", "content": "body"}, fastPolicy())
	if !vaulterr.Is(err, vaulterr.SchemaValidation) {
		t.Errorf("empty title code = %v", vaulterr.CodeOf(err))
	}
	_, err = r.Execute(context.Background(), "update_note",
		map[string]any{"uid": "20250101T000000000001Z", "title": ""}, fastPolicy())
	if !vaulterr.Is(err, vaulterr.SchemaValidation) {
		t.Errorf("empty update title code = %v", vaulterr.CodeOf(err))
	}
}

func TestDeleteRequiresLiteralConfirm(t *testing.T) {
	r, _ := newTestRegistry(t)

	created := execute(t, r, "create_note", map[string]any{
		"title": "Doomed", "content": "body",
	})
	uid := created.Metadata["uid"].(string)

	// confirm=false fails schema validation: only the literal true passes.
	_, err := r.Execute(context.Background(), "delete_note",
		map[string]any{"uid": uid, "confirm": false}, fastPolicy())
	if !vaulterr.Is(err, vaulterr.SchemaValidation) {
		t.Errorf("confirm=false code = %v", vaulterr.CodeOf(err))
	}

	result := execute(t, r, "delete_note", map[string]any{"uid": uid, "confirm": true})
	if result.Metadata["deleted"] != true {
		t.Errorf("delete result = %+v", result.Metadata)
	}
}

func TestStringArrayShim(t *testing.T) {
	r, _ := newTestRegistry(t)

	// Some clients serialize array arguments as JSON strings.
	result := execute(t, r, "create_note", map[string]any{
		"title":   "Shimmed",
		"content": "body",
		"tags":    `["alpha","beta"]`,
	})

	tags, ok := result.Metadata["tags"].([]string)
	if !ok || len(tags) != 2 || tags[0] != "alpha" {
		t.Errorf("tags = %v", result.Metadata["tags"])
	}
}

func TestExecuteRecordsMetrics(t *testing.T) {
	r, ec := newTestRegistry(t)

	execute(t, r, "list_notes", nil)
	r.Execute(context.Background(), "read_note",
		map[string]any{"uid": "20250101T000000000001Z"}, fastPolicy())

	s := ec.Metrics.Summary()
	if s.Tools["list_notes"].Succeeded != 1 {
		t.Errorf("list_notes summary = %+v", s.Tools["list_notes"])
	}
	if s.Tools["read_note"].Failed != 1 {
		t.Errorf("read_note summary = %+v", s.Tools["read_note"])
	}
}

func TestMaskPreview(t *testing.T) {
	out := maskPreview(map[string]any{
		"query":   "find things",
		"apiKey":  "sk-123456",
		"token":   "abc",
		"content": strings.Repeat("x", 500),
	})
	if strings.Contains(out, "sk-123456") || strings.Contains(out, "abc") {
		t.Errorf("secrets leaked: %s", out)
	}
	if !strings.Contains(out, "***") {
		t.Errorf("mask marker missing: %s", out)
	}
	if len(out) > previewMax+10 {
		t.Errorf("preview length = %d", len(out))
	}
}
