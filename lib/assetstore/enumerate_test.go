// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// drain consumes an Enumerator to exhaustion.
func drain(t *testing.T, e *Enumerator) []*AssetEntry {
	t.Helper()
	var entries []*AssetEntry
	for {
		entry, err := e.Next()
		if errors.Is(err, io.EOF) {
			return entries
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		entries = append(entries, entry)
	}
}

func TestEnumerateCompleteness(t *testing.T) {
	store := newTestStore(t, Options{Codec: CodecZstd, Level: 3})

	// N assets across M owners; every one must surface exactly once
	// with the owner/asset pairing recovered from the path alone.
	want := map[string]int64{}
	for owner := 0; owner < 3; owner++ {
		for asset := 0; asset < 4; asset++ {
			ownerID := fmt.Sprintf("owner-%d", owner)
			assetID := fmt.Sprintf("asset-%d", asset)
			data := compressibleData(512 * (asset + 1))
			if _, err := store.Save(ownerID, assetID, data, AssetMetadata{ContentType: "image/jpeg"}); err != nil {
				t.Fatal(err)
			}
			want[ownerID+"/"+assetID] = int64(len(data))
		}
	}

	entries := drain(t, store.Enumerate())
	if len(entries) != len(want) {
		t.Fatalf("enumerated %d entries, want %d", len(entries), len(want))
	}

	seen := map[string]bool{}
	for _, entry := range entries {
		key := entry.OwnerID + "/" + entry.AssetID
		if seen[key] {
			t.Errorf("duplicate entry %s", key)
		}
		seen[key] = true

		wantSize, known := want[key]
		if !known {
			t.Errorf("unexpected entry %s", key)
			continue
		}
		if entry.Size != wantSize {
			t.Errorf("%s: Size = %d, want %d", key, entry.Size, wantSize)
		}
		if entry.Metadata.ContentType != "image/jpeg" {
			t.Errorf("%s: ContentType = %q", key, entry.Metadata.ContentType)
		}
	}
}

func TestEnumerateEmptyStore(t *testing.T) {
	store := newTestStore(t, Options{})
	entry, err := store.Enumerate().Next()
	if !errors.Is(err, io.EOF) {
		t.Errorf("Next on empty store: entry=%v err=%v, want io.EOF", entry, err)
	}
}

func TestEnumerateAfterEOF(t *testing.T) {
	store := newTestStore(t, Options{})
	e := store.Enumerate()
	if _, err := e.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("first Next: %v", err)
	}
	if _, err := e.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after EOF: %v, want io.EOF again", err)
	}
}

func TestEnumerateSkipsBrokenAssets(t *testing.T) {
	store := newTestStore(t, Options{Codec: CodecNone})

	if _, err := store.Save("u", "good", []byte("data"), AssetMetadata{ContentType: "image/png"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save("u", "bad-sidecar", []byte("data"), AssetMetadata{ContentType: "image/png"}); err != nil {
		t.Fatal(err)
	}

	// Corrupt one sidecar and drop another asset's payload entirely.
	if err := os.WriteFile(filepath.Join(store.assetDir("u", "bad-sidecar"), metadataName), []byte("{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(store.assetDir("u", "payload-less"), 0o755); err != nil {
		t.Fatal(err)
	}

	entries := drain(t, store.Enumerate())
	if len(entries) != 1 {
		t.Fatalf("enumerated %d entries, want 1", len(entries))
	}
	if entries[0].AssetID != "good" {
		t.Errorf("AssetID = %q, want %q", entries[0].AssetID, "good")
	}
}

func TestEnumerateSizeFallback(t *testing.T) {
	store := newTestStore(t, Options{Codec: CodecNone})
	data := []byte("legacy asset payload")
	if _, err := store.Save("u", "a", data, AssetMetadata{ContentType: "image/png"}); err != nil {
		t.Fatal(err)
	}
	// Null out the recorded size the way a legacy writer left it.
	if err := writeMetadata(store.assetDir("u", "a"), &AssetMetadata{ContentType: "image/png"}); err != nil {
		t.Fatal(err)
	}

	entries := drain(t, store.Enumerate())
	if len(entries) != 1 {
		t.Fatalf("enumerated %d entries, want 1", len(entries))
	}
	if entries[0].Size != int64(len(data)) {
		t.Errorf("Size = %d, want on-disk length %d", entries[0].Size, len(data))
	}
}

func TestEnumerateIsLazy(t *testing.T) {
	store := newTestStore(t, Options{})
	for owner := 0; owner < 5; owner++ {
		if _, err := store.Save(fmt.Sprintf("owner-%d", owner), "a", []byte("x"), AssetMetadata{ContentType: "image/png"}); err != nil {
			t.Fatal(err)
		}
	}

	// Consuming one entry and stopping must not fail even if later
	// owners become unreadable after the first Next — the walk has
	// no business touching them.
	e := store.Enumerate()
	first, err := e.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first == nil {
		t.Fatal("first entry is nil")
	}
}
