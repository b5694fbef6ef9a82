package vpath

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Prefix is the fixed logical prefix for assets stored inside the
// managed library. Catalog records always use this prefix so the
// physical root can move without invalidating the catalog.
const Prefix = "/assets"

// Resolver maps between physical paths under the library root and
// virtual catalog paths.
type Resolver struct {
	root string
}

// NewResolver creates a Resolver for the given physical library root.
func NewResolver(root string) *Resolver {
	return &Resolver{root: filepath.Clean(root)}
}

// Root returns the physical library root.
func (r *Resolver) Root() string {
	return r.root
}

// ToVirtual converts a physical path under the library root to its
// virtual catalog path. The result always uses forward slashes.
func (r *Resolver) ToVirtual(physical string) (string, error) {
	rel, err := filepath.Rel(r.root, physical)
	if err != nil {
		return "", fmt.Errorf("path %q is not under library root %q: %w", physical, r.root, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return Prefix, nil
	}
	if strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %q escapes library root %q", physical, r.root)
	}
	return Prefix + "/" + rel, nil
}

// ToPhysical converts a virtual catalog path back to a physical path
// under the library root.
func (r *Resolver) ToPhysical(virtual string) (string, error) {
	if !IsVirtual(virtual) {
		return "", fmt.Errorf("not a virtual path: %q", virtual)
	}
	rel := strings.TrimPrefix(Normalize(virtual), Prefix)
	rel = strings.TrimPrefix(rel, "/")
	return filepath.Join(r.root, filepath.FromSlash(rel)), nil
}

// IsVirtual reports whether p carries the managed-library prefix.
func IsVirtual(p string) bool {
	p = Normalize(p)
	return p == Prefix || strings.HasPrefix(p, Prefix+"/")
}

// Normalize canonicalizes a virtual path: forward slashes, no
// duplicate separators, no trailing slash.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	if p == "." || p == "/" {
		return "/"
	}
	return strings.TrimSuffix(p, "/")
}

// Parent returns the parent of a normalized virtual path, or "" when
// p is the asset root (or above it).
func Parent(p string) string {
	p = Normalize(p)
	if p == Prefix {
		return ""
	}
	parent := path.Dir(p)
	if len(parent) < len(Prefix) {
		return ""
	}
	return parent
}

// Base returns the final element of a virtual path.
func Base(p string) string {
	return path.Base(Normalize(p))
}

// Depth returns the number of path segments below the leading slash.
// Used to delete orphaned folders deepest-first.
func Depth(p string) int {
	p = strings.Trim(Normalize(p), "/")
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}
