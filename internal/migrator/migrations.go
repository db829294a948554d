package migrator

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed sql/*.sql
var embedded embed.FS

// Migration is one versioned SQL file split at its Up/Down markers.
type Migration struct {
	Name     string
	Up       string
	Down     string
	Checksum string
}

const (
	markerUp   = "-- +migrate Up"
	markerDown = "-- +migrate Down"
)

// Load reads the embedded migrations in name order.
func Load() ([]Migration, error) {
	return LoadFS(embedded, "sql")
}

func LoadFS(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		m, err := Parse(strings.TrimSuffix(entry.Name(), ".sql"), string(data))
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Name < migrations[j].Name })
	return migrations, nil
}

// Parse splits a migration file. The Up section is mandatory.
func Parse(name, content string) (Migration, error) {
	upIdx := strings.Index(content, markerUp)
	if upIdx == -1 {
		return Migration{}, fmt.Errorf("migration %s: missing %q marker", name, markerUp)
	}

	body := content[upIdx+len(markerUp):]
	up, down := body, ""
	if downIdx := strings.Index(body, markerDown); downIdx != -1 {
		up, down = body[:downIdx], body[downIdx+len(markerDown):]
	}

	sum := sha256.Sum256([]byte(content))
	return Migration{
		Name:     name,
		Up:       strings.TrimSpace(up),
		Down:     strings.TrimSpace(down),
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}

// SplitStatements breaks a script on semicolons that end a line, skipping
// comment-only and blank fragments.
func SplitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
	)
	flush := func() {
		stmt := strings.TrimSpace(current.String())
		current.Reset()
		if stmt != "" && !isComment(stmt) {
			statements = append(statements, stmt)
		}
	}

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") && current.Len() == 0 {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()
	return statements
}

func isComment(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
