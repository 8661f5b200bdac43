// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// On-disk artifact names within an asset directory.
const (
	payloadName  = "asset.bin"
	metadataName = "metadata.json"
)

// payloadSuffixes is the probe order when locating a payload file.
// The bare name comes first (uncompressed and legacy assets), then
// the codec suffixes. A directory may contain a payload written under
// any previously-configured codec, so every suffix is tried.
var payloadSuffixes = []string{"", ".zst", ".lz4", ".gz"}

// assetDir returns the directory for an (owner, asset) pair:
// <root>/<ownerID>/<assetID>.
func (s *Store) assetDir(ownerID, assetID string) string {
	return filepath.Join(s.root, ownerID, assetID)
}

// ownerDir returns the subtree holding all of one owner's assets.
func (s *Store) ownerDir(ownerID string) string {
	return filepath.Join(s.root, ownerID)
}

// locatePayload probes the asset directory for a payload file under
// each known suffix and returns the first that exists. Returns an
// error wrapping ErrNotFound when no candidate exists — the caller
// decides whether that is fatal.
func locatePayload(dir string) (string, error) {
	for _, suffix := range payloadSuffixes {
		candidate := filepath.Join(dir, payloadName+suffix)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no payload file in %s: %w", dir, ErrNotFound)
}

// fileExists reports whether path exists and is a regular file. This
// is an explicit existence check, not errno control flow: callers
// iterate it over the suffix list and never treat absence as an
// exceptional condition.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// validateID rejects identifiers that cannot safely become a path
// component. Owner and asset identifiers arrive from collaborators
// as opaque strings but are used verbatim in the two-level directory
// layout, so separators and relative-path elements are forbidden.
func validateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s identifier is empty", kind)
	}
	if id == "." || id == ".." {
		return fmt.Errorf("%s identifier %q is a relative path element", kind, id)
	}
	if strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%s identifier %q contains a path separator", kind, id)
	}
	return nil
}
