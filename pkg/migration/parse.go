package migration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/taxpoynt/core/internal/apperror"
)

// headerPrefix marks one recognized declarative-migration header line
// (§6 "header comments of shape `-- @key: value`").
const headerPrefix = "-- @"

// downMarker splits a declarative file's body into its UP and DOWN
// sections (§6 "Body split on `-- DOWN`").
const downMarker = "-- DOWN"

// DiscoverDir reads every *.sql file directly under dir (non-recursive,
// lexically sorted so discovery order is deterministic) and parses each
// into a Migration. The migration id is the file's base name without
// extension.
func DiscoverDir(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindMigration, "read migrations directory")
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, apperror.Wrap(err, apperror.KindMigration, "read migration file "+name)
		}
		id := strings.TrimSuffix(name, ".sql")
		m, err := parseDeclarative(id, string(content))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// parseDeclarative parses one declarative migration file's header comments
// and UP/DOWN body (§6).
func parseDeclarative(id, content string) (Migration, error) {
	meta := Metadata{ID: id, RollbackSafe: false}
	sum := sha256.Sum256([]byte(content))
	meta.Checksum = hex.EncodeToString(sum[:])

	var upBody, downBody string
	if idx := strings.Index(content, downMarker); idx >= 0 {
		upBody = content[:idx]
		downBody = content[idx+len(downMarker):]
	} else {
		upBody = content
	}

	for _, line := range strings.Split(upBody, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, headerPrefix) {
			continue
		}
		kv := strings.TrimPrefix(trimmed, headerPrefix)
		sep := strings.Index(kv, ":")
		if sep < 0 {
			continue
		}
		key := strings.TrimSpace(kv[:sep])
		value := strings.TrimSpace(kv[sep+1:])
		applyHeader(&meta, key, value)
	}

	upSQL := stripHeaders(upBody)
	downSQL := stripHeaders(downBody)

	return Migration{
		Metadata: meta,
		Up:       sqlExecutor(upSQL),
		Down:     sqlExecutor(downSQL),
	}, nil
}

func applyHeader(meta *Metadata, key, value string) {
	switch key {
	case "name":
		meta.Name = value
	case "description":
		meta.Description = value
	case "author":
		meta.Author = value
	case "dependencies":
		meta.Dependencies = splitCSV(value)
	case "breaking_changes":
		meta.BreakingChanges = parseBool(value)
	case "estimated_duration_minutes":
		if n, err := strconv.Atoi(value); err == nil {
			meta.EstimatedDurationMinutes = n
		}
	case "requires_maintenance_mode":
		meta.RequiresMaintenanceMode = parseBool(value)
	case "tenant_specific":
		meta.TenantSpecific = parseBool(value)
	case "rollback_safe":
		meta.RollbackSafe = parseBool(value)
	}
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(value string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(value))
	return b
}

// stripHeaders removes header-comment lines from a section's body, leaving
// only executable SQL (plain `--` comments that are not header lines are
// left intact — they're harmless to the statement).
func stripHeaders(body string) string {
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), headerPrefix) {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// sqlExecutor builds an Executor that runs sql verbatim as one statement
// per semicolon-separated segment, summing affected rows. An empty body
// (e.g. a DOWN section omitted entirely) is a no-op, satisfying discovery
// for irreversible migrations that simply don't register rollback_safe.
func sqlExecutor(sql string) Executor {
	return func(ctx context.Context, tx Tx) (int64, error) {
		sql = strings.TrimSpace(sql)
		if sql == "" {
			return 0, nil
		}
		var total int64
		for _, stmt := range splitStatements(sql) {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			affected, err := tx.Exec(ctx, stmt)
			if err != nil {
				return total, apperror.Wrap(err, apperror.KindMigration, "execute migration statement")
			}
			total += affected
		}
		return total, nil
	}
}

// splitStatements divides a SQL body on top-level semicolons. It is
// deliberately naive (no string/quote awareness) since migration bodies are
// operator-authored DDL, not untrusted input.
func splitStatements(sql string) []string {
	return strings.Split(sql, ";")
}
