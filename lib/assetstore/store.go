// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// Store is a per-user content store. Each asset lives in its own
// directory keyed by (ownerID, assetID) and consists of exactly two
// artifacts: the payload (compressed under the codec configured at
// write time, or raw) and the metadata sidecar.
//
// Independent asset operations are safe to run concurrently — the
// directory-per-asset layout gives them no shared mutable state. Two
// concurrent Saves of the identical (ownerID, assetID) pair are not
// serialized: last writer wins at the filesystem level. A read racing
// a delete of the same asset may observe ErrNotFound.
type Store struct {
	root        string
	compressor  *Compressor
	screenshots bool
	logger      *slog.Logger
}

// Options configures a Store. The codec choice is injected here once
// and is read-only for the store's lifetime; reads never consult it.
type Options struct {
	// Codec is the compression applied to new payloads. CodecNone
	// stores raw bytes.
	Codec Codec

	// Level is the compression level, interpreted and clamped per
	// codec. Ignored for CodecNone.
	Level int

	// Screenshots enables StoreScreenshot. When false, screenshot
	// ingestion is a no-op.
	Screenshots bool

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// NewStore creates a Store rooted at the given directory, creating
// it if necessary.
func NewStore(root string, opts Options) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("store root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating store root %s: %w", root, err)
	}

	compressor, err := NewCompressor(opts.Codec, opts.Level)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		root:        root,
		compressor:  compressor,
		screenshots: opts.Screenshots,
		logger:      logger,
	}, nil
}

// SaveResult describes a completed save.
type SaveResult struct {
	// Codec is the codec the payload was actually written under.
	// May be CodecNone even when the store is configured with a
	// compressing codec, if compression failed or did not shrink
	// the data.
	Codec Codec

	// Size is the original (uncompressed) byte length.
	Size int64

	// StoredSize is the on-disk payload length after compression.
	StoredSize int64

	// ContentHash is the BLAKE3 hex digest of the original bytes.
	ContentHash string
}

// Save stores an asset. The content type is validated against
// StorageTypes before any disk mutation; a rejected save leaves no
// directory behind. The caller-supplied OriginalSize is not trusted —
// it is overwritten with the actual input length.
//
// The payload and sidecar are written concurrently and both must land
// before the save is durable. Each lands via an atomic rename; if
// either write fails and the asset did not previously exist, the
// directory is removed so no torn payload/sidecar pair survives the
// call.
func (s *Store) Save(ownerID, assetID string, data []byte, meta AssetMetadata) (*SaveResult, error) {
	if err := validateID("owner", ownerID); err != nil {
		return nil, err
	}
	if err := validateID("asset", assetID); err != nil {
		return nil, err
	}
	if !StorageTypes.Contains(meta.ContentType) {
		return nil, fmt.Errorf("content type %q: %w", meta.ContentType, ErrUnsupportedContentType)
	}

	originalSize := int64(len(data))
	meta.OriginalSize = &originalSize

	payload, codec := s.compressWithFallback(ownerID, assetID, data)

	dir := s.assetDir(ownerID, assetID)
	dirExisted := fileOrDirExists(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating asset directory %s: %w", dir, err)
	}

	payloadPath := filepath.Join(dir, payloadName+codec.Suffix())

	// Payload and sidecar are issued concurrently; there is no
	// ordering guarantee between which lands first. Both are awaited
	// before the save is considered complete.
	payloadDone := make(chan error, 1)
	go func() {
		payloadDone <- writeFileAtomic(payloadPath, payload)
	}()
	metaErr := writeMetadata(dir, &meta)
	payloadErr := <-payloadDone

	if payloadErr != nil || metaErr != nil {
		if !dirExisted {
			if removeErr := os.RemoveAll(dir); removeErr != nil {
				s.logger.Warn("cleanup after failed save",
					"owner", ownerID, "asset", assetID, "error", removeErr)
			}
		}
		if payloadErr != nil {
			return nil, fmt.Errorf("writing payload: %w", payloadErr)
		}
		return nil, fmt.Errorf("writing metadata: %w", metaErr)
	}

	// An overwrite may change the codec suffix; drop any payload
	// left by a previous configuration so suffix probing stays
	// unambiguous.
	s.removeStalePayloads(dir, payloadPath)

	digest := blake3.Sum256(data)
	return &SaveResult{
		Codec:       codec,
		Size:        originalSize,
		StoredSize:  int64(len(payload)),
		ContentHash: hex.EncodeToString(digest[:]),
	}, nil
}

// SaveFile ingests an asset that is already materialized on disk,
// copying it into the store uncompressed — callers use this for
// dense media (video, images) where compression adds CPU cost
// without reducing size. The source file is removed only after a
// fully successful copy; on any failure the source survives, since
// it may be the only remaining copy of the data.
func (s *Store) SaveFile(ownerID, assetID, sourcePath string, meta AssetMetadata) (*SaveResult, error) {
	if err := validateID("owner", ownerID); err != nil {
		return nil, err
	}
	if err := validateID("asset", assetID); err != nil {
		return nil, err
	}
	if !StorageTypes.Contains(meta.ContentType) {
		return nil, fmt.Errorf("content type %q: %w", meta.ContentType, ErrUnsupportedContentType)
	}

	source, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source file %s: %w", sourcePath, err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return nil, fmt.Errorf("stating source file %s: %w", sourcePath, err)
	}
	originalSize := info.Size()
	meta.OriginalSize = &originalSize

	dir := s.assetDir(ownerID, assetID)
	dirExisted := fileOrDirExists(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating asset directory %s: %w", dir, err)
	}

	cleanup := func() {
		if !dirExisted {
			os.RemoveAll(dir)
		}
	}

	payloadPath := filepath.Join(dir, payloadName)
	hasher := blake3.New()
	if err := copyFileAtomic(payloadPath, io.TeeReader(source, hasher)); err != nil {
		cleanup()
		return nil, fmt.Errorf("copying %s into store: %w", sourcePath, err)
	}

	if err := writeMetadata(dir, &meta); err != nil {
		cleanup()
		return nil, fmt.Errorf("writing metadata: %w", err)
	}

	s.removeStalePayloads(dir, payloadPath)

	// The copy is durable; the source is now a duplicate. Removal
	// failure is logged, not fatal.
	if err := os.Remove(sourcePath); err != nil {
		s.logger.Warn("removing ingested source file", "path", sourcePath, "error", err)
	}

	return &SaveResult{
		Codec:       CodecNone,
		Size:        originalSize,
		StoredSize:  originalSize,
		ContentHash: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Read returns an asset's original bytes and its metadata. The
// payload's codec is detected from its magic-number signature, never
// from the store's configuration, so assets written under a
// previously-configured codec decode correctly.
func (s *Store) Read(ownerID, assetID string) ([]byte, *AssetMetadata, error) {
	data, err := s.readPayload(ownerID, assetID)
	if err != nil {
		return nil, nil, err
	}

	meta, err := readMetadata(s.assetDir(ownerID, assetID))
	if err != nil {
		return nil, nil, err
	}
	return data, meta, nil
}

// ReadRange returns a forward-only reader over a subrange of the
// decompressed payload. The range [start, end) applies only when
// both bounds are non-negative; otherwise the whole payload is
// returned. Out-of-bounds ranges are clamped to the payload length.
// The reader terminates with io.EOF at the end of the range; it is
// single-pass and not restartable.
func (s *Store) ReadRange(ownerID, assetID string, start, end int64) (io.ReadCloser, error) {
	data, err := s.readPayload(ownerID, assetID)
	if err != nil {
		return nil, err
	}

	if start >= 0 && end >= 0 {
		if end < start {
			return nil, fmt.Errorf("invalid range [%d, %d)", start, end)
		}
		length := int64(len(data))
		if start > length {
			start = length
		}
		if end > length {
			end = length
		}
		data = data[start:end]
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// ReadMetadata returns the asset's sidecar without touching the
// payload. This is the cheap path for size and type queries.
func (s *Store) ReadMetadata(ownerID, assetID string) (*AssetMetadata, error) {
	if err := validateID("owner", ownerID); err != nil {
		return nil, err
	}
	if err := validateID("asset", assetID); err != nil {
		return nil, err
	}
	return readMetadata(s.assetDir(ownerID, assetID))
}

// EffectiveSize returns the asset's uncompressed size. The sidecar's
// recorded size is preferred; when it is null or the sidecar is
// unusable (assets written before size tracking existed), the actual
// on-disk payload length is used instead.
func (s *Store) EffectiveSize(ownerID, assetID string) (int64, error) {
	if err := validateID("owner", ownerID); err != nil {
		return 0, err
	}
	if err := validateID("asset", assetID); err != nil {
		return 0, err
	}

	dir := s.assetDir(ownerID, assetID)
	meta, err := readMetadata(dir)
	if err == nil && meta.OriginalSize != nil {
		return *meta.OriginalSize, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrMetadataInvalid) {
		return 0, err
	}

	path, err := locatePayload(dir)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stating payload %s: %w", path, err)
	}
	return info.Size(), nil
}

// Exists reports whether a payload file exists for the asset under
// any known suffix.
func (s *Store) Exists(ownerID, assetID string) bool {
	if validateID("owner", ownerID) != nil || validateID("asset", assetID) != nil {
		return false
	}
	_, err := locatePayload(s.assetDir(ownerID, assetID))
	return err == nil
}

// Delete removes the asset's directory — payload and sidecar go
// together. Returns ErrNotFound when the asset does not exist.
func (s *Store) Delete(ownerID, assetID string) error {
	if err := validateID("owner", ownerID); err != nil {
		return err
	}
	if err := validateID("asset", assetID); err != nil {
		return err
	}

	dir := s.assetDir(ownerID, assetID)
	if !fileOrDirExists(dir) {
		return fmt.Errorf("asset %s/%s: %w", ownerID, assetID, ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing asset directory %s: %w", dir, err)
	}
	return nil
}

// SilentDelete removes the asset, swallowing every error. Cleanup
// call sites use this where a deletion failure must not fail the
// outer operation. Deleting an absent asset is a no-op.
func (s *Store) SilentDelete(ownerID, assetID string) {
	if err := s.Delete(ownerID, assetID); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Debug("silent delete", "owner", ownerID, "asset", assetID, "error", err)
	}
}

// DeleteOwner removes every asset under the owner's subtree in one
// step. A missing subtree is a no-op, not an error.
func (s *Store) DeleteOwner(ownerID string) error {
	if err := validateID("owner", ownerID); err != nil {
		return err
	}
	if err := os.RemoveAll(s.ownerDir(ownerID)); err != nil {
		return fmt.Errorf("removing owner subtree %s: %w", ownerID, err)
	}
	return nil
}

// readPayload locates the payload file, detects its codec from the
// on-disk bytes, and returns the decompressed content.
func (s *Store) readPayload(ownerID, assetID string) ([]byte, error) {
	if err := validateID("owner", ownerID); err != nil {
		return nil, err
	}
	if err := validateID("asset", assetID); err != nil {
		return nil, err
	}

	path, err := locatePayload(s.assetDir(ownerID, assetID))
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading payload %s: %w", path, err)
	}

	return Decompress(raw, Detect(raw))
}

// compressWithFallback applies the configured codec. Any compression
// failure — including incompressible input — falls back to storing
// the original bytes under CodecNone. The fallback is decided here,
// synchronously, before anything touches the disk.
func (s *Store) compressWithFallback(ownerID, assetID string, data []byte) ([]byte, Codec) {
	codec := s.compressor.Codec()
	if codec == CodecNone {
		return data, CodecNone
	}

	compressed, err := s.compressor.Compress(data)
	if err != nil {
		if !IsIncompressible(err) {
			s.logger.Warn("compression failed, storing uncompressed",
				"owner", ownerID, "asset", assetID, "codec", codec.String(), "error", err)
		}
		return data, CodecNone
	}
	return compressed, codec
}

// removeStalePayloads deletes payload files in dir other than keep.
// Best effort: a leftover variant wastes space but the fresh write is
// already durable, so removal failure is only logged.
func (s *Store) removeStalePayloads(dir, keep string) {
	for _, suffix := range payloadSuffixes {
		candidate := filepath.Join(dir, payloadName+suffix)
		if candidate == keep {
			continue
		}
		if err := os.Remove(candidate); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("removing stale payload", "path", candidate, "error", err)
		}
	}
}

// copyFileAtomic streams r into path via a temp file and rename.
func copyFileAtomic(path string, r io.Reader) error {
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

	if _, err := io.Copy(tmpFile, r); err != nil {
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

func fileOrDirExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
