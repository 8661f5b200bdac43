// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/assetstore/lib/assetstore"
	"github.com/bureau-foundation/assetstore/lib/codec"
)

// Connection timeout constants.
const (
	// readTimeout is how long we wait for the client to send its
	// request. A well-behaved client sends it immediately after
	// connecting.
	readTimeout = 30 * time.Second

	// writeTimeout is how long we wait for the response to be
	// written. Responses embed the payload, so this also bounds data
	// transfer; it is generous for a local Unix socket.
	writeTimeout = 10 * time.Second
)

// AssetService is the core service state: a store and a logger. The
// store serializes nothing itself — independent asset operations are
// safe to run concurrently, so each connection gets its own goroutine
// with no shared locking.
type AssetService struct {
	store  *assetstore.Store
	logger *slog.Logger
}

// serve starts accepting connections on the Unix socket and
// dispatches requests. Blocks until ctx is cancelled, then stops
// accepting new connections and waits for active handlers to
// complete.
func (as *AssetService) serve(ctx context.Context, socketPath string) error {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", socketPath, err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(socketPath)
	}()

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	as.logger.Info("asset socket listening", "path", socketPath)

	var activeConnections sync.WaitGroup

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			as.logger.Error("accept failed", "error", err)
			continue
		}

		activeConnections.Add(1)
		go func() {
			defer activeConnections.Done()
			as.handleConnection(ctx, conn)
		}()
	}

	activeConnections.Wait()
	return nil
}

// handleConnection processes one client request on a connection. The
// first (and only) message determines the action; the handler writes
// exactly one response.
func (as *AssetService) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	raw, err := assetstore.ReadRawMessage(conn)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return
		}
		as.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var header struct {
		Action string `json:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		as.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if header.Action == "" {
		as.writeError(conn, "missing required field: action")
		return
	}

	switch header.Action {
	case "store":
		as.handleStore(conn, raw)
	case "fetch":
		as.handleFetch(conn, raw)
	case "metadata":
		as.handleMetadata(conn, raw)
	case "delete":
		as.handleDelete(conn, raw)
	case "delete-owner":
		as.handleDeleteOwner(conn, raw)
	case "list":
		as.handleList(conn, raw)
	case "screenshot":
		as.handleScreenshot(conn, raw)
	default:
		as.writeError(conn, fmt.Sprintf("unknown action %q", header.Action))
	}
}

// --- Store action ---

func (as *AssetService) handleStore(conn net.Conn, raw []byte) {
	var request assetstore.StoreRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		as.writeError(conn, fmt.Sprintf("invalid store request: %v", err))
		return
	}

	meta := assetstore.AssetMetadata{ContentType: request.ContentType}
	if request.FileName != "" {
		meta.FileName = &request.FileName
	}

	result, err := as.store.Save(request.OwnerID, request.AssetID, request.Data, meta)
	if err != nil {
		as.writeError(conn, fmt.Sprintf("store failed: %v", err))
		return
	}

	as.logger.Info("asset stored",
		"owner", request.OwnerID,
		"asset", request.AssetID,
		"codec", result.Codec.String(),
		"size", result.Size,
		"stored_size", result.StoredSize,
		"content_type", request.ContentType,
	)

	as.writeResult(conn, assetstore.StoreResponse{
		Codec:       result.Codec.String(),
		Size:        result.Size,
		StoredSize:  result.StoredSize,
		ContentHash: result.ContentHash,
	})
}

// --- Fetch action ---

func (as *AssetService) handleFetch(conn net.Conn, raw []byte) {
	var request assetstore.FetchRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		as.writeError(conn, fmt.Sprintf("invalid fetch request: %v", err))
		return
	}

	var data []byte
	var meta *assetstore.AssetMetadata
	var err error

	if request.Start != nil && request.End != nil {
		var reader io.ReadCloser
		reader, err = as.store.ReadRange(request.OwnerID, request.AssetID, *request.Start, *request.End)
		if err == nil {
			data, err = io.ReadAll(reader)
			reader.Close()
		}
		if err == nil {
			meta, err = as.store.ReadMetadata(request.OwnerID, request.AssetID)
		}
	} else {
		data, meta, err = as.store.Read(request.OwnerID, request.AssetID)
	}
	if err != nil {
		as.writeError(conn, fmt.Sprintf("fetch failed: %v", err))
		return
	}

	response := assetstore.FetchResponse{
		ContentType: meta.ContentType,
		Size:        int64(len(data)),
		Data:        data,
	}
	if meta.FileName != nil {
		response.FileName = *meta.FileName
	}
	as.writeResult(conn, response)
}

// --- Metadata action ---

func (as *AssetService) handleMetadata(conn net.Conn, raw []byte) {
	var request assetstore.MetadataRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		as.writeError(conn, fmt.Sprintf("invalid metadata request: %v", err))
		return
	}

	meta, err := as.store.ReadMetadata(request.OwnerID, request.AssetID)
	if err != nil {
		as.writeError(conn, fmt.Sprintf("reading metadata: %v", err))
		return
	}
	effectiveSize, err := as.store.EffectiveSize(request.OwnerID, request.AssetID)
	if err != nil {
		as.writeError(conn, fmt.Sprintf("reading effective size: %v", err))
		return
	}

	response := assetstore.MetadataResponse{
		ContentType:   meta.ContentType,
		OriginalSize:  meta.OriginalSize,
		EffectiveSize: effectiveSize,
	}
	if meta.FileName != nil {
		response.FileName = *meta.FileName
	}
	as.writeResult(conn, response)
}

// --- Delete actions ---

func (as *AssetService) handleDelete(conn net.Conn, raw []byte) {
	var request assetstore.DeleteRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		as.writeError(conn, fmt.Sprintf("invalid delete request: %v", err))
		return
	}

	if request.Silent {
		as.store.SilentDelete(request.OwnerID, request.AssetID)
		as.writeResult(conn, assetstore.DeleteResponse{})
		return
	}

	if err := as.store.Delete(request.OwnerID, request.AssetID); err != nil {
		as.writeError(conn, fmt.Sprintf("delete failed: %v", err))
		return
	}
	as.logger.Info("asset deleted", "owner", request.OwnerID, "asset", request.AssetID)
	as.writeResult(conn, assetstore.DeleteResponse{})
}

func (as *AssetService) handleDeleteOwner(conn net.Conn, raw []byte) {
	var request assetstore.DeleteRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		as.writeError(conn, fmt.Sprintf("invalid delete-owner request: %v", err))
		return
	}

	if err := as.store.DeleteOwner(request.OwnerID); err != nil {
		as.writeError(conn, fmt.Sprintf("delete-owner failed: %v", err))
		return
	}
	as.logger.Info("owner assets deleted", "owner", request.OwnerID)
	as.writeResult(conn, assetstore.DeleteResponse{})
}

// --- List action ---

func (as *AssetService) handleList(conn net.Conn, raw []byte) {
	var request assetstore.ListRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		as.writeError(conn, fmt.Sprintf("invalid list request: %v", err))
		return
	}

	var entries []assetstore.ListEntry
	enumerator := as.store.Enumerate()
	for {
		if request.Limit > 0 && len(entries) >= request.Limit {
			break
		}
		entry, err := enumerator.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			as.writeError(conn, fmt.Sprintf("enumerating assets: %v", err))
			return
		}
		listEntry := assetstore.ListEntry{
			OwnerID:     entry.OwnerID,
			AssetID:     entry.AssetID,
			ContentType: entry.Metadata.ContentType,
			Size:        entry.Size,
		}
		if entry.Metadata.FileName != nil {
			listEntry.FileName = *entry.Metadata.FileName
		}
		entries = append(entries, listEntry)
	}

	as.writeResult(conn, assetstore.ListResponse{Entries: entries})
}

// --- Screenshot action ---

func (as *AssetService) handleScreenshot(conn net.Conn, raw []byte) {
	var request assetstore.ScreenshotRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		as.writeError(conn, fmt.Sprintf("invalid screenshot request: %v", err))
		return
	}

	result, err := as.store.StoreScreenshot(request.Data, request.OwnerID, request.JobID)
	if err != nil {
		as.writeError(conn, fmt.Sprintf("storing screenshot: %v", err))
		return
	}
	if result == nil {
		// Screenshot storage disabled or no bytes supplied.
		as.writeResult(conn, assetstore.ScreenshotResponse{Stored: false})
		return
	}

	as.logger.Info("screenshot stored",
		"owner", request.OwnerID,
		"job", request.JobID,
		"asset", result.AssetID,
	)
	as.writeResult(conn, assetstore.ScreenshotResponse{
		Stored:      true,
		AssetID:     result.AssetID,
		ContentType: result.ContentType,
		FileName:    result.FileName,
		Size:        result.Size,
	})
}

// --- Response helpers ---

// writeError sends an error response to the client.
func (as *AssetService) writeError(conn net.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := assetstore.WriteMessage(conn, assetstore.ErrorResponse{Error: message}); err != nil {
		as.logger.Debug("failed to write error response", "error", err)
	}
}

// writeResult sends a success result to the client. The value is
// encoded directly as a CBOR message — no wrapping envelope.
func (as *AssetService) writeResult(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := assetstore.WriteMessage(conn, result); err != nil {
		as.logger.Debug("failed to write result", "error", err)
	}
}
