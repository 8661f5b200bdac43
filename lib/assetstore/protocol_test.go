// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/bureau-foundation/assetstore/lib/codec"
)

func TestMessageRoundtrip(t *testing.T) {
	var buffer bytes.Buffer

	request := StoreRequest{
		Action:      "store",
		OwnerID:     "user-1",
		AssetID:     "asset-1",
		ContentType: "image/png",
		FileName:    "photo.png",
		Data:        []byte{0x89, 0x50, 0x4E, 0x47},
	}
	if err := WriteMessage(&buffer, request); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	var decoded StoreRequest
	if err := ReadMessage(&buffer, &decoded); err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if decoded.Action != request.Action || decoded.OwnerID != request.OwnerID ||
		decoded.ContentType != request.ContentType || !bytes.Equal(decoded.Data, request.Data) {
		t.Errorf("decoded = %+v, want %+v", decoded, request)
	}
}

func TestReadRawMessageThenDecode(t *testing.T) {
	// The service reads the raw body once, routes on the action
	// field, then decodes the full request from the same bytes.
	var buffer bytes.Buffer
	if err := WriteMessage(&buffer, FetchRequest{Action: "fetch", OwnerID: "u", AssetID: "a"}); err != nil {
		t.Fatal(err)
	}

	raw, err := ReadRawMessage(&buffer)
	if err != nil {
		t.Fatalf("ReadRawMessage: %v", err)
	}

	var header struct {
		Action string `json:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		t.Fatalf("decoding action header: %v", err)
	}
	if header.Action != "fetch" {
		t.Errorf("Action = %q", header.Action)
	}

	var full FetchRequest
	if err := codec.Unmarshal(raw, &full); err != nil {
		t.Fatalf("decoding full request: %v", err)
	}
	if full.OwnerID != "u" || full.AssetID != "a" {
		t.Errorf("full = %+v", full)
	}
}

func TestReadRawMessageRejectsOversize(t *testing.T) {
	var buffer bytes.Buffer
	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], MaxMessageSize+1)
	buffer.Write(lengthPrefix[:])

	if _, err := ReadRawMessage(&buffer); err == nil {
		t.Error("ReadRawMessage should reject a length above MaxMessageSize")
	}
}

func TestReadRawMessageTruncated(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteMessage(&buffer, ListRequest{Action: "list"}); err != nil {
		t.Fatal(err)
	}
	truncated := bytes.NewReader(buffer.Bytes()[:buffer.Len()-1])

	if _, err := ReadRawMessage(truncated); err == nil {
		t.Error("ReadRawMessage should fail on a truncated body")
	}
}

func TestFetchRangePointerEncoding(t *testing.T) {
	// Absent bounds must stay absent across the wire — zero is a
	// valid offset, so presence is meaningful.
	var buffer bytes.Buffer
	start := int64(0)
	end := int64(10)
	if err := WriteMessage(&buffer, FetchRequest{Action: "fetch", OwnerID: "u", AssetID: "a", Start: &start, End: &end}); err != nil {
		t.Fatal(err)
	}
	var withRange FetchRequest
	if err := ReadMessage(&buffer, &withRange); err != nil {
		t.Fatal(err)
	}
	if withRange.Start == nil || *withRange.Start != 0 || withRange.End == nil || *withRange.End != 10 {
		t.Errorf("range = (%v, %v)", withRange.Start, withRange.End)
	}

	buffer.Reset()
	if err := WriteMessage(&buffer, FetchRequest{Action: "fetch", OwnerID: "u", AssetID: "a"}); err != nil {
		t.Fatal(err)
	}
	var withoutRange FetchRequest
	if err := ReadMessage(&buffer, &withoutRange); err != nil {
		t.Fatal(err)
	}
	if withoutRange.Start != nil || withoutRange.End != nil {
		t.Errorf("absent range decoded as (%v, %v)", withoutRange.Start, withoutRange.End)
	}
}
