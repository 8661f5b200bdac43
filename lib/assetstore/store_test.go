// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "assets"), opts)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func stringPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func TestSaveReadRoundtrip(t *testing.T) {
	data := compressibleData(32 * 1024)

	for _, codec := range []Codec{CodecNone, CodecZstd, CodecLZ4, CodecGzip} {
		t.Run(codec.String(), func(t *testing.T) {
			store := newTestStore(t, Options{Codec: codec, Level: 5})

			result, err := store.Save("user-1", "asset-1", data, AssetMetadata{
				ContentType: "text/html",
				FileName:    stringPtr("page.html"),
			})
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			if result.Codec != codec {
				t.Errorf("result.Codec = %v, want %v", result.Codec, codec)
			}
			if result.Size != int64(len(data)) {
				t.Errorf("result.Size = %d, want %d", result.Size, len(data))
			}
			if result.ContentHash == "" {
				t.Error("result.ContentHash is empty")
			}

			readBack, meta, err := store.Read("user-1", "asset-1")
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !bytes.Equal(readBack, data) {
				t.Error("read-back bytes differ from input")
			}
			if meta.ContentType != "text/html" {
				t.Errorf("ContentType = %q", meta.ContentType)
			}
			if meta.FileName == nil || *meta.FileName != "page.html" {
				t.Errorf("FileName = %v", meta.FileName)
			}
			if meta.OriginalSize == nil || *meta.OriginalSize != int64(len(data)) {
				t.Errorf("OriginalSize = %v", meta.OriginalSize)
			}
		})
	}
}

func TestReadIsConfigurationIndependent(t *testing.T) {
	// An asset written under codec A must decode after the store is
	// reopened with codec B: detection is signature-based.
	root := filepath.Join(t.TempDir(), "assets")
	data := compressibleData(16 * 1024)

	writer, err := NewStore(root, Options{Codec: CodecZstd, Level: 9})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := writer.Save("user-1", "old-asset", data, AssetMetadata{ContentType: "application/pdf"}); err != nil {
		t.Fatalf("Save under zstd: %v", err)
	}

	reader, err := NewStore(root, Options{Codec: CodecGzip, Level: 6})
	if err != nil {
		t.Fatal(err)
	}

	readBack, _, err := reader.Read("user-1", "old-asset")
	if err != nil {
		t.Fatalf("Read after codec switch: %v", err)
	}
	if !bytes.Equal(readBack, data) {
		t.Error("asset written under zstd did not survive a switch to gzip")
	}

	// And new writes under the new codec coexist with the old asset.
	if _, err := reader.Save("user-1", "new-asset", data, AssetMetadata{ContentType: "application/pdf"}); err != nil {
		t.Fatalf("Save under gzip: %v", err)
	}
	for _, assetID := range []string{"old-asset", "new-asset"} {
		readBack, _, err := reader.Read("user-1", assetID)
		if err != nil {
			t.Fatalf("Read %s: %v", assetID, err)
		}
		if !bytes.Equal(readBack, data) {
			t.Errorf("%s: read-back bytes differ", assetID)
		}
	}
}

func TestSaveRejectsUnsupportedContentType(t *testing.T) {
	store := newTestStore(t, Options{Codec: CodecZstd})

	_, err := store.Save("user-1", "asset-1", []byte("PK..."), AssetMetadata{
		ContentType: "application/zip",
	})
	if !errors.Is(err, ErrUnsupportedContentType) {
		t.Fatalf("err = %v, want ErrUnsupportedContentType", err)
	}

	// A rejected save must leave nothing behind.
	if fileOrDirExists(store.assetDir("user-1", "asset-1")) {
		t.Error("rejected save left an asset directory behind")
	}
	if fileOrDirExists(store.ownerDir("user-1")) {
		t.Error("rejected save left an owner directory behind")
	}
}

func TestSaveOverwritesCallerSuppliedSize(t *testing.T) {
	store := newTestStore(t, Options{Codec: CodecNone})
	data := []byte("actual content")

	_, err := store.Save("user-1", "asset-1", data, AssetMetadata{
		ContentType:  "image/png",
		OriginalSize: int64Ptr(999999), // lies
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	meta, err := store.ReadMetadata("user-1", "asset-1")
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if meta.OriginalSize == nil || *meta.OriginalSize != int64(len(data)) {
		t.Errorf("OriginalSize = %v, want %d", meta.OriginalSize, len(data))
	}
}

func TestOverwriteSwitchesSuffix(t *testing.T) {
	root := filepath.Join(t.TempDir(), "assets")
	data := compressibleData(8 * 1024)

	zstdStore, err := NewStore(root, Options{Codec: CodecZstd, Level: 3})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zstdStore.Save("u", "a", data, AssetMetadata{ContentType: "text/html"}); err != nil {
		t.Fatal(err)
	}

	rawStore, err := NewStore(root, Options{Codec: CodecNone})
	if err != nil {
		t.Fatal(err)
	}
	replacement := []byte("replacement content")
	if _, err := rawStore.Save("u", "a", replacement, AssetMetadata{ContentType: "text/html"}); err != nil {
		t.Fatal(err)
	}

	// The stale zstd payload must be gone: suffix probing would
	// otherwise be ambiguous.
	dir := rawStore.assetDir("u", "a")
	if fileExists(filepath.Join(dir, payloadName+".zst")) {
		t.Error("stale .zst payload survived an overwrite under CodecNone")
	}

	readBack, _, err := rawStore.Read("u", "a")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(readBack, replacement) {
		t.Error("read did not return the replacement content")
	}
}

func TestReadNotFound(t *testing.T) {
	store := newTestStore(t, Options{})

	_, _, err := store.Read("user-1", "no-such-asset")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReadRange(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecZstd} {
		t.Run(codec.String(), func(t *testing.T) {
			store := newTestStore(t, Options{Codec: codec, Level: 3})

			data := make([]byte, 100)
			for i := range data {
				data[i] = byte(i)
			}
			if _, err := store.Save("u", "a", data, AssetMetadata{ContentType: "video/mp4"}); err != nil {
				t.Fatal(err)
			}

			reader, err := store.ReadRange("u", "a", 10, 20)
			if err != nil {
				t.Fatalf("ReadRange: %v", err)
			}
			got, err := io.ReadAll(reader)
			reader.Close()
			if err != nil {
				t.Fatalf("reading range: %v", err)
			}
			if !bytes.Equal(got, data[10:20]) {
				t.Errorf("range [10, 20) = %v, want %v", got, data[10:20])
			}
		})
	}
}

func TestReadRangeWholePayload(t *testing.T) {
	store := newTestStore(t, Options{Codec: CodecGzip, Level: 6})
	data := compressibleData(1024)
	if _, err := store.Save("u", "a", data, AssetMetadata{ContentType: "text/html"}); err != nil {
		t.Fatal(err)
	}

	// A range applies only when both bounds are non-negative.
	for _, bounds := range [][2]int64{{-1, -1}, {10, -1}, {-1, 20}} {
		reader, err := store.ReadRange("u", "a", bounds[0], bounds[1])
		if err != nil {
			t.Fatalf("ReadRange(%d, %d): %v", bounds[0], bounds[1], err)
		}
		got, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("ReadRange(%d, %d) did not return the whole payload", bounds[0], bounds[1])
		}
	}
}

func TestReadRangeClamping(t *testing.T) {
	store := newTestStore(t, Options{})
	if _, err := store.Save("u", "a", []byte("0123456789"), AssetMetadata{ContentType: "text/html"}); err != nil {
		t.Fatal(err)
	}

	reader, err := store.ReadRange("u", "a", 5, 100)
	if err != nil {
		t.Fatalf("ReadRange past end: %v", err)
	}
	got, _ := io.ReadAll(reader)
	reader.Close()
	if string(got) != "56789" {
		t.Errorf("clamped range = %q, want %q", got, "56789")
	}

	if _, err := store.ReadRange("u", "a", 20, 10); err == nil {
		t.Error("inverted range should fail")
	}
}

func TestEffectiveSize(t *testing.T) {
	store := newTestStore(t, Options{Codec: CodecZstd, Level: 3})
	data := compressibleData(2048)
	if _, err := store.Save("u", "a", data, AssetMetadata{ContentType: "image/jpeg"}); err != nil {
		t.Fatal(err)
	}

	size, err := store.EffectiveSize("u", "a")
	if err != nil {
		t.Fatalf("EffectiveSize: %v", err)
	}
	if size != int64(len(data)) {
		t.Errorf("EffectiveSize = %d, want %d", size, len(data))
	}
}

func TestEffectiveSizeFallsBackToDiskLength(t *testing.T) {
	// Assets written before size tracking carry a null originalSize;
	// the on-disk payload length is the answer then.
	store := newTestStore(t, Options{Codec: CodecNone})
	data := []byte("sixteen byte str")
	if _, err := store.Save("u", "a", data, AssetMetadata{ContentType: "image/png"}); err != nil {
		t.Fatal(err)
	}

	// Rewrite the sidecar the way the legacy writer produced it.
	dir := store.assetDir("u", "a")
	if err := writeMetadata(dir, &AssetMetadata{ContentType: "image/png"}); err != nil {
		t.Fatal(err)
	}

	size, err := store.EffectiveSize("u", "a")
	if err != nil {
		t.Fatalf("EffectiveSize: %v", err)
	}
	if size != int64(len(data)) {
		t.Errorf("EffectiveSize = %d, want on-disk length %d", size, len(data))
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t, Options{})
	if _, err := store.Save("u", "a", []byte("x"), AssetMetadata{ContentType: "image/png"}); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete("u", "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Exists("u", "a") {
		t.Error("asset still exists after Delete")
	}
	if _, _, err := store.Read("u", "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read after Delete: err = %v, want ErrNotFound", err)
	}

	if err := store.Delete("u", "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete of absent asset: err = %v, want ErrNotFound", err)
	}
}

func TestSilentDeleteAbsentAsset(t *testing.T) {
	store := newTestStore(t, Options{})
	// Must not panic or return; absence is a no-op.
	store.SilentDelete("nobody", "nothing")
}

func TestDeleteOwner(t *testing.T) {
	store := newTestStore(t, Options{})
	for _, assetID := range []string{"a1", "a2", "a3"} {
		if _, err := store.Save("victim", assetID, []byte("x"), AssetMetadata{ContentType: "image/png"}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.Save("bystander", "b1", []byte("y"), AssetMetadata{ContentType: "image/png"}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteOwner("victim"); err != nil {
		t.Fatalf("DeleteOwner: %v", err)
	}
	if fileOrDirExists(store.ownerDir("victim")) {
		t.Error("owner subtree still exists")
	}
	if !store.Exists("bystander", "b1") {
		t.Error("unrelated owner's asset was removed")
	}

	// Absent owner is a no-op, not an error.
	if err := store.DeleteOwner("never-existed"); err != nil {
		t.Errorf("DeleteOwner of absent owner: %v", err)
	}
}

func TestSaveFile(t *testing.T) {
	store := newTestStore(t, Options{Codec: CodecZstd, Level: 3})

	content := compressibleData(4096)
	sourcePath := filepath.Join(t.TempDir(), "upload.mp4")
	if err := os.WriteFile(sourcePath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := store.SaveFile("u", "a", sourcePath, AssetMetadata{ContentType: "video/mp4"})
	if err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	// Copy-based ingestion always stores raw, regardless of the
	// configured codec.
	if result.Codec != CodecNone {
		t.Errorf("result.Codec = %v, want CodecNone", result.Codec)
	}
	if result.Size != int64(len(content)) {
		t.Errorf("result.Size = %d, want %d", result.Size, len(content))
	}

	// The source must be gone after a successful ingest.
	if fileOrDirExists(sourcePath) {
		t.Error("source file still exists after successful SaveFile")
	}

	readBack, meta, err := store.Read("u", "a")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(readBack, content) {
		t.Error("read-back bytes differ from the ingested file")
	}
	if meta.OriginalSize == nil || *meta.OriginalSize != int64(len(content)) {
		t.Errorf("OriginalSize = %v", meta.OriginalSize)
	}
}

func TestSaveFileFailurePreservesSource(t *testing.T) {
	store := newTestStore(t, Options{})

	content := []byte("the only copy of this data")
	sourcePath := filepath.Join(t.TempDir(), "upload.bin")
	if err := os.WriteFile(sourcePath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Block the asset directory: a regular file where MkdirAll needs
	// a directory makes the destination write fail.
	if err := os.WriteFile(store.ownerDir("u"), []byte("in the way"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := store.SaveFile("u", "a", sourcePath, AssetMetadata{ContentType: "video/mp4"})
	if err == nil {
		t.Fatal("SaveFile should fail when the destination cannot be created")
	}

	// Partial-failure contract: never destroy the only remaining copy.
	got, readErr := os.ReadFile(sourcePath)
	if readErr != nil {
		t.Fatalf("source file missing after failed SaveFile: %v", readErr)
	}
	if !bytes.Equal(got, content) {
		t.Error("source file content changed after failed SaveFile")
	}
}

func TestExists(t *testing.T) {
	store := newTestStore(t, Options{Codec: CodecLZ4, Level: 6})

	if store.Exists("u", "a") {
		t.Error("Exists before save")
	}
	if _, err := store.Save("u", "a", compressibleData(512), AssetMetadata{ContentType: "image/webp"}); err != nil {
		t.Fatal(err)
	}
	if !store.Exists("u", "a") {
		t.Error("!Exists after save")
	}
}

func TestIdentifierValidation(t *testing.T) {
	store := newTestStore(t, Options{})

	bad := []struct {
		owner, asset string
	}{
		{"", "a"},
		{"u", ""},
		{"..", "a"},
		{"u", ".."},
		{"u/v", "a"},
		{"u", `a\b`},
	}

	for _, tt := range bad {
		if _, err := store.Save(tt.owner, tt.asset, []byte("x"), AssetMetadata{ContentType: "image/png"}); err == nil {
			t.Errorf("Save(%q, %q) should fail", tt.owner, tt.asset)
		}
		if _, _, err := store.Read(tt.owner, tt.asset); err == nil {
			t.Errorf("Read(%q, %q) should fail", tt.owner, tt.asset)
		}
		if err := store.Delete(tt.owner, tt.asset); err == nil {
			t.Errorf("Delete(%q, %q) should fail", tt.owner, tt.asset)
		}
	}
}

func TestLegacyUnsuffixedCompressedPayload(t *testing.T) {
	// A payload written by an earlier deployment may carry a codec
	// signature without the matching suffix (e.g. copied around by
	// an operator). Detection is purely signature-based, so it must
	// still decode.
	store := newTestStore(t, Options{Codec: CodecZstd, Level: 3})
	data := compressibleData(2048)
	if _, err := store.Save("u", "a", data, AssetMetadata{ContentType: "text/html"}); err != nil {
		t.Fatal(err)
	}

	dir := store.assetDir("u", "a")
	if err := os.Rename(filepath.Join(dir, payloadName+".zst"), filepath.Join(dir, payloadName)); err != nil {
		t.Fatal(err)
	}

	readBack, _, err := store.Read("u", "a")
	if err != nil {
		t.Fatalf("Read of unsuffixed compressed payload: %v", err)
	}
	if !bytes.Equal(readBack, data) {
		t.Error("read-back bytes differ")
	}
}
