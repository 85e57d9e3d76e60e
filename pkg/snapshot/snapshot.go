// Package snapshot captures the regular files beneath a directory root.
package snapshot

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/fnmatch"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/fserr"
)

// DefaultFilter selects every file.
const DefaultFilter = "*"

// FileRecord represents a file observed under a root
type FileRecord struct {
	FullPath     string    `json:"full_path" yaml:"full_path"`
	RelativePath string    `json:"relative_path" yaml:"relative_path"` // Relative to the root, OS separators
	Size         uint64    `json:"size" yaml:"size"`
	ModTime      time.Time `json:"mod_time" yaml:"mod_time"`
	ContentHash  string    `json:"content_hash,omitempty" yaml:"content_hash,omitempty"` // Empty until computed
}

// Key returns the identity of the record within its snapshot: the relative
// path with forward slashes, compared case-insensitively.
func (r FileRecord) Key() string {
	return KeyOf(r.RelativePath)
}

// KeyOf normalizes a relative path into a snapshot key.
func KeyOf(relPath string) string {
	return strings.ToLower(filepath.ToSlash(relPath))
}

// Builder takes snapshots of a filesystem
type Builder struct {
	fs       billy.Filesystem
	excludes *fnmatch.Matcher
}

// NewBuilder creates a Builder. Exclude patterns are matched against the
// forward-slash relative path of every file.
func NewBuilder(fs billy.Filesystem, excludes []string) (*Builder, error) {
	m, err := fnmatch.Compile(excludes, true)
	if err != nil {
		return nil, fserr.Newf(fserr.InvalidArgument, "compile exclude", "", "%v", err)
	}
	return &Builder{fs: fs, excludes: m}, nil
}

// Build lists the regular files under root whose names match filter.
// Any enumeration failure aborts the whole snapshot.
func (b *Builder) Build(root, filter string, recursive bool) ([]FileRecord, error) {
	root = TrimRoot(root)
	if filter == "" {
		filter = DefaultFilter
	}
	filter = strings.ToLower(filepath.ToSlash(filter))
	if !doublestar.ValidatePattern(filter) {
		return nil, fserr.Newf(fserr.InvalidArgument, "parse filter", filter, "malformed pattern")
	}

	info, err := b.fs.Stat(root)
	if err != nil {
		return nil, fserr.New("stat root", root, err)
	}
	if !info.IsDir() {
		return nil, fserr.Newf(fserr.InvalidArgument, "stat root", root, "not a directory")
	}

	var records []FileRecord
	add := func(path string, info os.FileInfo) error {
		if !info.Mode().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fserr.New("relative path", path, err)
		}
		if !b.selected(relPath, filter) {
			return nil
		}

		records = append(records, newRecord(path, relPath, info))
		return nil
	}

	if recursive {
		err = util.Walk(b.fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return fserr.New("walk", path, err)
			}
			return add(path, info)
		})
	} else {
		var entries []os.FileInfo
		entries, err = b.fs.ReadDir(root)
		if err != nil {
			err = fserr.New("read directory", root, err)
		}
		for _, entry := range entries {
			if err = add(b.fs.Join(root, entry.Name()), entry); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}

	return sortRecords(records)
}

// FromList builds a snapshot from an explicit list file holding one path per
// line, relative to root. Blank lines and lines starting with # are ignored;
// other lines are used verbatim apart from a trailing carriage return.
// Listed files that do not exist are kept with a zero size so the copy
// reports them individually.
func (b *Builder) FromList(root, listPath string) ([]FileRecord, error) {
	root = TrimRoot(root)

	data, err := util.ReadFile(b.fs, listPath)
	if err != nil {
		return nil, fserr.New("read list", listPath, err)
	}

	var records []FileRecord
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		relPath, err := listEntry(line)
		if err != nil {
			return nil, fserr.Newf(fserr.InvalidArgument, "read list", listPath, "line %d: %v", lineNo, err)
		}
		if b.excludes.Match(filepath.ToSlash(relPath)) {
			continue
		}
		key := KeyOf(relPath)
		if seen[key] {
			continue
		}
		seen[key] = true

		fullPath := b.fs.Join(root, relPath)
		info, err := b.fs.Stat(fullPath)
		switch {
		case err != nil:
			records = append(records, FileRecord{FullPath: fullPath, RelativePath: relPath})
		case info.IsDir():
			return nil, fserr.Newf(fserr.InvalidArgument, "read list", listPath, "line %d: %s is a directory", lineNo, line)
		default:
			records = append(records, newRecord(fullPath, relPath, info))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fserr.New("read list", listPath, err)
	}

	return records, nil
}

// TrimRoot strips trailing path separators, leaving a bare root intact.
func TrimRoot(root string) string {
	trimmed := strings.TrimRight(root, `/\`)
	if trimmed == "" && root != "" {
		return root[:1]
	}
	return trimmed
}

func (b *Builder) selected(relPath, filter string) bool {
	slashed := filepath.ToSlash(relPath)
	if b.excludes.Match(slashed) {
		return false
	}

	subject := strings.ToLower(filepath.Base(relPath))
	if strings.Contains(filter, "/") {
		subject = strings.ToLower(slashed)
	}
	matched, err := doublestar.Match(filter, subject)
	return err == nil && matched
}

func listEntry(line string) (string, error) {
	line = strings.TrimLeft(filepath.FromSlash(line), string(filepath.Separator))
	relPath := filepath.Clean(line)
	if relPath == "." || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q escapes the source root", line)
	}
	return relPath, nil
}

func newRecord(fullPath, relPath string, info os.FileInfo) FileRecord {
	return FileRecord{
		FullPath:     fullPath,
		RelativePath: relPath,
		Size:         uint64(info.Size()),
		ModTime:      info.ModTime(),
	}
}

func sortRecords(records []FileRecord) ([]FileRecord, error) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key() < records[j].Key()
	})
	for i := 1; i < len(records); i++ {
		if records[i].Key() == records[i-1].Key() {
			return nil, fserr.Newf(fserr.InvalidArgument, "snapshot", records[i].FullPath,
				"path collides with %s when compared case-insensitively", records[i-1].RelativePath)
		}
	}
	return records, nil
}
