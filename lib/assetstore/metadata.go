// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AssetMetadata is the JSON sidecar stored alongside every payload.
// The schema is an external contract:
//
//	{"contentType": string, "fileName": string|null, "originalSize": number|null}
//
// ContentType is mandatory. FileName is the caller-supplied display
// name, if any. OriginalSize is the uncompressed byte length recorded
// at write time; assets written before size tracking existed carry
// null, and readers fall back to the on-disk payload length.
type AssetMetadata struct {
	ContentType  string  `json:"contentType"`
	FileName     *string `json:"fileName"`
	OriginalSize *int64  `json:"originalSize"`
}

// writeMetadata persists the sidecar, overwriting any previous one.
// The file is written to a temporary name in the same directory and
// renamed into place so a concurrent reader never observes a
// partially-written sidecar.
func writeMetadata(dir string, meta *AssetMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding asset metadata: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, metadataName), data)
}

// readMetadata loads and validates the sidecar in dir. A missing
// sidecar wraps ErrNotFound; undecodable JSON or a missing content
// type wraps ErrMetadataInvalid.
func readMetadata(dir string) (*AssetMetadata, error) {
	path := filepath.Join(dir, metadataName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no metadata sidecar in %s: %w", dir, ErrNotFound)
		}
		return nil, fmt.Errorf("reading metadata sidecar %s: %w", path, err)
	}

	var meta AssetMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding metadata sidecar %s: %w: %w", path, ErrMetadataInvalid, err)
	}
	if meta.ContentType == "" {
		return nil, fmt.Errorf("metadata sidecar %s has no content type: %w", path, ErrMetadataInvalid)
	}
	return &meta, nil
}

// writeFileAtomic writes data to path via a temporary file in the
// same directory followed by a rename. The rename is atomic on POSIX
// filesystems, so readers see either the old content or the new
// content, never a prefix.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}

	success = true
	return nil
}
