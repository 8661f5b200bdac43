// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package assetstore persists opaque binary assets (images, PDFs,
// HTML snapshots, video) under a two-level directory keyed by owner
// and asset identifier:
//
//	<root>/<ownerID>/<assetID>/asset.bin[.zst|.lz4|.gz]
//	<root>/<ownerID>/<assetID>/metadata.json
//
// Payloads are transparently compressed on write with the configured
// codec (zstd, lz4, gzip, or none) and reconstructed on read by
// sniffing the payload's magic-number signature — never by trusting
// file extensions, stored metadata, or the store's current
// configuration. Historical assets written under a previously
// configured codec therefore keep decoding correctly after the
// configuration changes, with no migration step.
//
// Compression is strictly an optimization: if a codec fails or does
// not shrink the data, the original bytes are stored raw, decided
// synchronously before the write returns. Decompression failures are
// surfaced as ErrDecompress rather than returning raw bytes, since
// passthrough on failure would hand callers silently-wrong data.
//
// The package also defines the CBOR wire protocol spoken by
// cmd/assetstore-service, the Unix-socket daemon that exposes the
// store to local collaborators.
package assetstore
