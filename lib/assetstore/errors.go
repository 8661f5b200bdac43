// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import "errors"

// Sentinel errors returned by store operations. Callers use
// errors.Is to distinguish the failure class; every error carries
// operation context wrapped around one of these.
var (
	// ErrNotFound indicates that no payload file exists for the
	// requested asset at any known codec suffix, or that the
	// metadata sidecar is missing.
	ErrNotFound = errors.New("asset not found")

	// ErrUnsupportedContentType indicates a save was attempted with
	// a content type outside the storage allow-list. The store is
	// not mutated.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrMetadataInvalid indicates the metadata sidecar exists but
	// is malformed: undecodable JSON or a missing content type.
	ErrMetadataInvalid = errors.New("invalid asset metadata")

	// ErrDecompress indicates the payload's compression signature
	// was recognized but decoding failed. This is surfaced as an
	// explicit error rather than returning the raw bytes, since
	// passthrough on failure would mask corruption.
	ErrDecompress = errors.New("decompression failed")
)
