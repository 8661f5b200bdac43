// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bureau-foundation/assetstore/lib/codec"
)

// Wire protocol for the asset service socket. Every message is a
// length-prefixed CBOR document: a 4-byte big-endian uint32 length
// followed by that many bytes. Asset payloads ride inside the CBOR
// message as byte strings — the store buffers whole assets anyway,
// so a framed binary side-channel would buy nothing.

// MaxMessageSize bounds a single wire message. Large enough for any
// supported asset (video snapshots included) while keeping a corrupt
// length prefix from provoking a multi-gigabyte allocation.
const MaxMessageSize = 256 * 1024 * 1024

// WriteMessage encodes v as CBOR and writes it with a length prefix.
func WriteMessage(w io.Writer, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	if len(data) > MaxMessageSize {
		return fmt.Errorf("message size %d exceeds maximum %d", len(data), MaxMessageSize)
	}
	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], uint32(len(data)))
	if _, err := w.Write(lengthPrefix[:]); err != nil {
		return fmt.Errorf("writing message length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}
	return nil
}

// ReadRawMessage reads one length-prefixed message and returns the
// raw CBOR bytes. The caller decodes an action header first, then
// the per-action request type, so the body is read exactly once.
func ReadRawMessage(r io.Reader) ([]byte, error) {
	var lengthPrefix [4]byte
	if _, err := io.ReadFull(r, lengthPrefix[:]); err != nil {
		return nil, fmt.Errorf("reading message length: %w", err)
	}
	length := binary.BigEndian.Uint32(lengthPrefix[:])
	if length > MaxMessageSize {
		return nil, fmt.Errorf("message size %d exceeds maximum %d", length, MaxMessageSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("reading message body: %w", err)
	}
	return data, nil
}

// ReadMessage reads one length-prefixed CBOR message into v.
func ReadMessage(r io.Reader, v any) error {
	raw, err := ReadRawMessage(r)
	if err != nil {
		return err
	}
	if err := codec.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding message: %w", err)
	}
	return nil
}

// --- Request types ---
//
// Each request carries an "action" field for routing. The json tags
// are the CBOR field names (fxamacker/cbor falls back to json tags)
// and double as debugging output.

// StoreRequest stores an asset from in-memory bytes.
type StoreRequest struct {
	Action      string `json:"action"`
	OwnerID     string `json:"owner_id"`
	AssetID     string `json:"asset_id"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name,omitempty"`
	Data        []byte `json:"data"`
}

// FetchRequest retrieves asset content. When both Start and End are
// present, only the byte range [Start, End) of the decompressed
// payload is returned.
type FetchRequest struct {
	Action  string `json:"action"`
	OwnerID string `json:"owner_id"`
	AssetID string `json:"asset_id"`
	Start   *int64 `json:"start,omitempty"`
	End     *int64 `json:"end,omitempty"`
}

// MetadataRequest retrieves the sidecar and effective size without
// touching the payload.
type MetadataRequest struct {
	Action  string `json:"action"`
	OwnerID string `json:"owner_id"`
	AssetID string `json:"asset_id"`
}

// DeleteRequest removes one asset, or an owner's whole subtree when
// AssetID is empty and the action is "delete-owner". Silent converts
// any deletion failure into a no-op success.
type DeleteRequest struct {
	Action  string `json:"action"`
	OwnerID string `json:"owner_id"`
	AssetID string `json:"asset_id,omitempty"`
	Silent  bool   `json:"silent,omitempty"`
}

// ListRequest enumerates stored assets. Limit bounds the number of
// entries returned; zero means no bound.
type ListRequest struct {
	Action string `json:"action"`
	Limit  int    `json:"limit,omitempty"`
}

// ScreenshotRequest stores a crawler screenshot under a fresh asset
// ID. Data may be empty — the service answers with Stored=false, the
// same no-op contract as Store.StoreScreenshot.
type ScreenshotRequest struct {
	Action  string `json:"action"`
	OwnerID string `json:"owner_id"`
	JobID   string `json:"job_id"`
	Data    []byte `json:"data,omitempty"`
}

// --- Response types ---

// ErrorResponse is the generic failure reply. Every response type
// carries the same "error" field, so a client decoding into its
// action-specific response type still sees the message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StoreResponse answers a store request.
type StoreResponse struct {
	Error       string `json:"error,omitempty"`
	Codec       string `json:"codec,omitempty"`
	Size        int64  `json:"size,omitempty"`
	StoredSize  int64  `json:"stored_size,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`
}

// FetchResponse answers a fetch request.
type FetchResponse struct {
	Error       string `json:"error,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Data        []byte `json:"data,omitempty"`
}

// MetadataResponse answers a metadata request.
type MetadataResponse struct {
	Error         string `json:"error,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	FileName      string `json:"file_name,omitempty"`
	OriginalSize  *int64 `json:"original_size,omitempty"`
	EffectiveSize int64  `json:"effective_size,omitempty"`
}

// DeleteResponse answers delete and delete-owner requests.
type DeleteResponse struct {
	Error string `json:"error,omitempty"`
}

// ListEntry is one asset summary in a ListResponse.
type ListEntry struct {
	OwnerID     string `json:"owner_id"`
	AssetID     string `json:"asset_id"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name,omitempty"`
	Size        int64  `json:"size"`
}

// ListResponse answers a list request.
type ListResponse struct {
	Error   string      `json:"error,omitempty"`
	Entries []ListEntry `json:"entries,omitempty"`
}

// ScreenshotResponse answers a screenshot request. Stored is false
// when screenshot storage is disabled or no bytes were supplied.
type ScreenshotResponse struct {
	Error       string `json:"error,omitempty"`
	Stored      bool   `json:"stored"`
	AssetID     string `json:"asset_id,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	Size        int64  `json:"size,omitempty"`
}
