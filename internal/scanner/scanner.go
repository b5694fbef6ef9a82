package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photokeep/internal/logging"
	"photokeep/internal/mediatypes"
)

var (
	// ErrEmptyRoot is returned when the scan root is blank.
	ErrEmptyRoot = errors.New("scan root path is empty")
	// ErrRootNotFound is returned when the scan root does not exist.
	ErrRootNotFound = errors.New("scan root does not exist")
)

// File is one discovered media file.
type File struct {
	Name       string
	Path       string // physical absolute path
	Size       int64
	CreatedAt  time.Time
	ModifiedAt time.Time
	Extension  string
	Type       mediatypes.MediaType
}

// Visit records which directories were entered during one scan.
// The folder reaper uses it to keep folders that still exist on disk.
type Visit struct {
	dirs map[string]bool
}

// Contains reports whether the physical directory was entered.
func (v *Visit) Contains(dir string) bool {
	if v == nil {
		return false
	}
	return v.dirs[filepath.Clean(dir)]
}

// Len returns the number of directories entered.
func (v *Visit) Len() int {
	if v == nil {
		return 0
	}
	return len(v.dirs)
}

func (v *Visit) add(dir string) {
	v.dirs[filepath.Clean(dir)] = true
}

// Scanner discovers media files under a library root.
type Scanner struct {
	root string
}

// New creates a Scanner for the given physical root.
func New(root string) *Scanner {
	return &Scanner{root: root}
}

// Scan walks the root and returns every allow-listed media file plus
// the set of directories visited. Hidden entries are skipped.
// Unreadable subdirectories are logged and skipped rather than
// aborting the scan. Cancellation is checked per entry.
func (s *Scanner) Scan(ctx context.Context) ([]File, *Visit, error) {
	if strings.TrimSpace(s.root) == "" {
		return nil, nil, ErrEmptyRoot
	}

	rootInfo, err := os.Stat(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrRootNotFound
		}
		return nil, nil, err
	}
	if !rootInfo.IsDir() {
		return nil, nil, ErrRootNotFound
	}

	var files []File
	visit := &Visit{dirs: make(map[string]bool)}
	visit.add(s.root)

	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			logging.Warn("Skipping inaccessible path %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path != s.root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			visit.add(path)
			return nil
		}

		// Non-regular files (symlinks, sockets) are not indexed.
		if !d.Type().IsRegular() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		mediaType := mediatypes.Classify(ext)
		if mediaType == mediatypes.MediaTypeOther {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Warn("Skipping unstattable file %s: %v", path, err)
			return nil
		}

		files = append(files, File{
			Name:       d.Name(),
			Path:       path,
			Size:       info.Size(),
			CreatedAt:  createdTime(info),
			ModifiedAt: info.ModTime(),
			Extension:  ext,
			Type:       mediaType,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logging.Debug("Scan of %s discovered %d files in %d directories", s.root, len(files), visit.Len())
	return files, visit, nil
}

// createdTime returns the file's creation timestamp. File birth time is
// not portable; modification time stands in where it is unavailable.
func createdTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}
