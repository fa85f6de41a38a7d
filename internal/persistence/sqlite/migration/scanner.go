package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
)

// migrationFileName matches NNN_description.sql, e.g. 001_create_rooms.sql.
var migrationFileName = regexp.MustCompile(`^(\d{3})_([a-z0-9_]+)\.sql$`)

// FSScanner discovers migration files inside a filesystem, typically an
// embed.FS compiled into the binary.
type FSScanner struct {
	fsys fs.FS
	dir  string
}

// NewFSScanner creates a scanner rooted at dir inside fsys.
func NewFSScanner(fsys fs.FS, dir string) *FSScanner {
	return &FSScanner{fsys: fsys, dir: dir}
}

// ScanMigrations reads every migration file under the scanner's directory,
// validates names, rejects duplicate versions, and returns the migrations
// sorted by version.
func (s *FSScanner) ScanMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(s.fsys, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory %s: %w", s.dir, err)
	}

	byVersion := make(map[string]string, len(entries))
	migrations := make([]Migration, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		match := migrationFileName.FindStringSubmatch(name)
		if match == nil {
			return nil, newError("", name, "scan", fmt.Errorf("%w: expected NNN_description.sql", ErrInvalidMigrationFile))
		}
		version, description := match[1], match[2]

		if existing, ok := byVersion[version]; ok {
			return nil, newError(version, name, "scan", fmt.Errorf("%w: %s and %s", ErrDuplicateVersion, existing, name))
		}
		byVersion[version] = name

		path := s.dir + "/" + name
		body, err := fs.ReadFile(s.fsys, path)
		if err != nil {
			return nil, newError(version, path, "read", err)
		}
		if strings.TrimSpace(string(body)) == "" {
			return nil, newError(version, path, "read", fmt.Errorf("%w: empty file", ErrInvalidMigrationFile))
		}

		sum := sha256.Sum256(body)
		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(description, "_", " "),
			SQL:         string(body),
			Path:        path,
			Checksum:    hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
