// Package vpath implements the virtual path scheme for catalog records.
//
// Assets inside the managed library are stored with the fixed "/assets"
// prefix instead of their physical location, so relocating the storage
// root never invalidates the catalog. A Resolver bound to the current
// physical root translates in both directions.
package vpath
