package tools

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// catalog declares the full tool surface. Order matters only for
// tools/list rendering.
func catalog() []*Tool {
	return []*Tool{
		{
			Name:        "create_note",
			Description: "Create a new note in the vault. Mints a unique ID and writes a markdown file with YAML front matter.\n\nArgs:\n  title: Note title (required)\n  content: Markdown body (required)\n  category: One of Projects, Areas, Resources, Archives\n  tags: List of tags\n  project: Project name this note belongs to\n  links: UIDs of related notes\n\nReturns the new note's uid, path, and summary.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"title":    nonEmptyStrSchema("Note title"),
				"content":  strSchema("Markdown body"),
				"category": categorySchema(),
				"tags":     strArraySchema("Tags for the note"),
				"project":  strSchema("Project this note belongs to"),
				"links":    strArraySchema("UIDs of related notes"),
			}, "title", "content"),
			Handler: handleCreateNote,
		},
		{
			Name:        "read_note",
			Description: "Read a note by its UID.\n\nArgs:\n  uid: Note identifier\n  includeMetadata: Add file path, word count, and size\n  includeLinks: Add outbound, inbound, and broken link analysis\n\nReturns front matter and body, plus the requested extras.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"uid":             strSchema("Note identifier"),
				"includeMetadata": boolSchema("Include file metadata"),
				"includeLinks":    boolSchema("Include link analysis"),
			}, "uid"),
			Handler: handleReadNote,
		},
		{
			Name:        "update_note",
			Description: "Update one or more fields of an existing note. At least one field besides uid is required. A title change renames the file.\n\nArgs:\n  uid: Note identifier (required)\n  title, content, category, tags, project, links: New values\n\nReturns the list of changed fields.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"uid":      strSchema("Note identifier"),
				"title":    nonEmptyStrSchema("New title"),
				"content":  strSchema("New markdown body"),
				"category": categorySchema(),
				"tags":     strArraySchema("Replacement tag list"),
				"project":  strSchema("New project"),
				"links":    strArraySchema("Replacement front-matter link list"),
			}, "uid"),
			Handler: handleUpdateNote,
		},
		{
			Name:        "delete_note",
			Description: "Permanently delete a note. Requires confirm=true.\n\nArgs:\n  uid: Note identifier\n  confirm: Must be literally true\n\nReturns info about the removed note.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"uid": strSchema("Note identifier"),
				"confirm": {
					Type:        "boolean",
					Description: "Must be true to delete",
					Enum:        []any{true},
				},
			}, "uid", "confirm"),
			Handler: handleDeleteNote,
		},
		{
			Name:        "list_notes",
			Description: "List notes with optional filters and pagination.\n\nArgs:\n  category, project: Exact-match filters\n  tags: Match notes carrying any of these tags\n  limit: Page size (default 100, max 1000)\n  offset: Pagination offset\n  sortBy: created, updated, or title (default updated)\n  sortOrder: asc or desc (default desc)\n\nReturns a page of notes plus the total count.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"category":  categorySchema(),
				"tags":      strArraySchema("Match any of these tags"),
				"project":   strSchema("Filter by project"),
				"limit":     intSchema("Page size", 1, 1000),
				"offset":    intSchema("Pagination offset", 0, 1000000),
				"sortBy":    enumSchema("Sort key", "created", "updated", "title"),
				"sortOrder": enumSchema("Sort direction", "asc", "desc"),
			}),
			Handler: handleListNotes,
		},
		{
			Name:        "search_memory",
			Description: "Full-text search over all notes with ranked results and snippets.\n\nArgs:\n  query: Search terms (required)\n  category: Restrict to one category\n  tags: Restrict to notes carrying any of these tags\n  limit: Max results (default 20, max 100)\n  offset: Pagination offset\n\nReturns ranked matches with highlighted snippets and timing.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"query":    strSchema("Search terms"),
				"category": categorySchema(),
				"tags":     strArraySchema("Match any of these tags"),
				"limit":    intSchema("Max results", 1, 100),
				"offset":   intSchema("Pagination offset", 0, 1000000),
			}, "query"),
			Handler: handleSearchMemory,
		},
		{
			Name:        "get_vault_stats",
			Description: "Vault roll-up: note and word counts, category histogram, top tags, and link totals.\n\nArgs:\n  includeCategories, includeTags, includeLinks: Section toggles (all default true)\n\nReturns counts and averages.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"includeCategories": boolSchema("Include the category histogram"),
				"includeTags":       boolSchema("Include the tag histogram"),
				"includeLinks":      boolSchema("Include link totals and orphan count"),
			}),
			Handler: handleVaultStats,
		},
		{
			Name:        "get_backlinks",
			Description: "Find notes that link to a given note, with context snippets around each reference.\n\nArgs:\n  uid: Target note identifier\n  limit: Max referring notes (default 20, max 100)\n\nReturns referring notes with snippet previews.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"uid":   strSchema("Target note identifier"),
				"limit": intSchema("Max referring notes", 1, 100),
			}, "uid"),
			Handler: handleGetBacklinks,
		},
		{
			Name:        "get_metrics",
			Description: "Server introspection: per-tool latency and success counters plus recovery-queue gauges.\n\nArgs:\n  format: json or prometheus (default json)\n  reset: Clear collected samples after reporting\n\nReturns the metrics summary or Prometheus text.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"format": enumSchema("Output format", "json", "prometheus"),
				"reset":  boolSchema("Reset collected samples after reporting"),
			}),
			Handler: handleGetMetrics,
		},
		{
			Name:        "find_orphan_notes",
			Description: "Find notes with no links in either direction.\n\nArgs:\n  limit: Max results (default 50)\n  category: Restrict to one category\n  sort: updated, created, or title\n\nReturns the orphaned notes.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"limit":    intSchema("Max results", 1, 1000),
				"category": categorySchema(),
				"sort":     enumSchema("Sort key", "updated", "created", "title"),
			}),
			Handler: handleFindOrphans,
		},
		{
			Name:        "find_stale_notes",
			Description: "Find notes not updated within a cutoff.\n\nArgs:\n  staleDays: Age threshold in days (default 30)\n  category: Restrict to one category\n  excludeArchives: Skip archived notes (default true)\n  limit: Max results\n  sort: updated (default, oldest first) or title\n\nReturns stale notes with how many days ago each was touched.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"staleDays":       intSchema("Age threshold in days", 1, 36500),
				"category":        categorySchema(),
				"excludeArchives": boolSchema("Skip notes in Archives"),
				"limit":           intSchema("Max results", 1, 1000),
				"sort":            enumSchema("Sort key", "updated", "title"),
			}),
			Handler: handleFindStale,
		},
		{
			Name:        "get_organization_health",
			Description: "Score the vault's organization from 0 to 100 with a letter grade, based on orphan ratio, staleness, and category balance.\n\nArgs:\n  includeRecommendations: Include improvement suggestions (default true)\n\nReturns the score, grade, component ratios, and recommendations.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"includeRecommendations": boolSchema("Include improvement suggestions"),
			}),
			Handler: handleOrgHealth,
		},
		{
			Name:        "archive_notes",
			Description: "Move notes to the Archives category in bulk. Requires confirm=true unless dryRun is set.\n\nArgs:\n  uids: Note identifiers (required, non-empty)\n  dryRun: Report what would change without writing\n  confirm: Must be true for a real run\n  reason: Optional note for the audit trail\n\nReturns per-uid status: success, skipped, or not_found.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"uids":    strArraySchema("Note identifiers to archive"),
				"dryRun":  boolSchema("Preview without writing"),
				"confirm": boolSchema("Required true for a real run"),
				"reason":  strSchema("Reason for archiving"),
			}, "uids"),
			Handler: handleArchiveNotes,
		},
		{
			Name:        "suggest_links",
			Description: "Suggest notes worth linking to a given note, ranked by shared tags, category, project, and keyword overlap.\n\nArgs:\n  uid: Target note identifier\n  limit: Max suggestions (default 5)\n  minScore: Minimum composite score (default 0.3)\n  excludeExisting: Skip already-linked notes (default true)\n\nReturns ranked candidates with per-component scores.",
			Schema: objSchema(map[string]*jsonschema.Schema{
				"uid":             strSchema("Target note identifier"),
				"limit":           intSchema("Max suggestions", 1, 100),
				"minScore":        numSchema("Minimum composite score"),
				"excludeExisting": boolSchema("Skip already-linked notes"),
			}, "uid"),
			Handler: handleSuggestLinks,
		},
	}
}

func categorySchema() *jsonschema.Schema {
	return enumSchema("PARA category", "Projects", "Areas", "Resources", "Archives")
}
