// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"fmt"
	"io"
	"os"
)

// AssetEntry is one asset summary yielded during enumeration. The
// owner and asset identifiers are recovered purely from the path
// structure; metadata and size come from the asset's own artifacts.
type AssetEntry struct {
	OwnerID  string
	AssetID  string
	Metadata AssetMetadata
	Size     int64
}

// Enumerator walks the store root and yields one AssetEntry per
// stored asset. It is lazy and forward-only: owner directories are
// listed once up front, each owner's asset directories are listed
// only when the walk reaches that owner, and stopping early reads no
// more of the filesystem than necessary. A new Enumerator restarts
// the walk from the beginning.
//
// The walk reflects the filesystem at the moment each directory is
// read; assets saved or deleted mid-walk may or may not appear.
type Enumerator struct {
	store *Store

	started  bool
	owners   []string
	ownerIdx int

	assets   []string
	assetIdx int
}

// Enumerate returns a new Enumerator over every asset in the store.
func (s *Store) Enumerate() *Enumerator {
	return &Enumerator{store: s}
}

// Next returns the next asset summary, or (nil, io.EOF) when the
// walk is exhausted. Directories without a payload file and assets
// with an unreadable sidecar are skipped with a warning — one broken
// asset must not abort an administrative listing.
func (e *Enumerator) Next() (*AssetEntry, error) {
	if !e.started {
		if err := e.loadOwners(); err != nil {
			return nil, err
		}
	}

	for {
		// Advance to an owner with remaining assets.
		for e.assetIdx >= len(e.assets) {
			if e.ownerIdx >= len(e.owners) {
				return nil, io.EOF
			}
			if err := e.loadAssets(e.owners[e.ownerIdx]); err != nil {
				e.ownerIdx++
				return nil, err
			}
			e.ownerIdx++
		}

		ownerID := e.owners[e.ownerIdx-1]
		assetID := e.assets[e.assetIdx]
		e.assetIdx++

		entry, ok := e.summarize(ownerID, assetID)
		if ok {
			return entry, nil
		}
	}
}

func (e *Enumerator) loadOwners() error {
	e.started = true
	entries, err := os.ReadDir(e.store.root)
	if err != nil {
		return fmt.Errorf("listing store root %s: %w", e.store.root, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			e.owners = append(e.owners, entry.Name())
		}
	}
	return nil
}

func (e *Enumerator) loadAssets(ownerID string) error {
	e.assets = e.assets[:0]
	e.assetIdx = 0

	entries, err := os.ReadDir(e.store.ownerDir(ownerID))
	if err != nil {
		return fmt.Errorf("listing owner directory %s: %w", ownerID, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			e.assets = append(e.assets, entry.Name())
		}
	}
	return nil
}

// summarize builds the entry for one asset directory. Returns false
// when the directory holds no usable asset.
func (e *Enumerator) summarize(ownerID, assetID string) (*AssetEntry, bool) {
	dir := e.store.assetDir(ownerID, assetID)

	payloadPath, err := locatePayload(dir)
	if err != nil {
		// Not an asset directory (or a torn write); skip silently.
		return nil, false
	}

	meta, err := readMetadata(dir)
	if err != nil {
		e.store.logger.Warn("skipping asset with unreadable metadata",
			"owner", ownerID, "asset", assetID, "error", err)
		return nil, false
	}

	size := int64(0)
	if meta.OriginalSize != nil {
		size = *meta.OriginalSize
	} else if info, err := os.Stat(payloadPath); err == nil {
		size = info.Size()
	}

	return &AssetEntry{
		OwnerID:  ownerID,
		AssetID:  assetID,
		Metadata: *meta,
		Size:     size,
	}, true
}
