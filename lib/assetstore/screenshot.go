// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"fmt"

	"github.com/google/uuid"
)

// ScreenshotResult describes a stored page screenshot.
type ScreenshotResult struct {
	AssetID     string
	ContentType string
	FileName    string
	Size        int64
}

// StoreScreenshot is the entry point used by the crawling subsystem
// to persist a captured page screenshot. It returns (nil, nil) — a
// deliberate no-op — when screenshot storage is disabled by
// configuration or when the crawler captured no bytes; the caller
// records the absence and moves on. Otherwise a fresh asset ID is
// generated, the bytes are stored as image/png, and the summary the
// crawler needs for its job record is returned.
func (s *Store) StoreScreenshot(data []byte, ownerID, jobID string) (*ScreenshotResult, error) {
	if !s.screenshots || len(data) == 0 {
		return nil, nil
	}

	assetID := uuid.NewString()
	fileName := fmt.Sprintf("screenshot-%s.png", jobID)

	meta := AssetMetadata{
		ContentType: "image/png",
		FileName:    &fileName,
	}
	result, err := s.Save(ownerID, assetID, data, meta)
	if err != nil {
		return nil, fmt.Errorf("storing screenshot for job %s: %w", jobID, err)
	}

	return &ScreenshotResult{
		AssetID:     assetID,
		ContentType: meta.ContentType,
		FileName:    fileName,
		Size:        result.Size,
	}, nil
}
