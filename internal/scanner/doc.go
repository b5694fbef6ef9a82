// Package scanner provides recursive media file discovery for the
// catalog synchronizer.
//
// A scan walks the library root depth-first, classifies files by
// extension against the mediatypes allow-lists and records every
// directory it enters. Hidden entries (prefixed with '.') and
// unsupported file types are excluded; unreadable subtrees are skipped
// without failing the scan.
package scanner
