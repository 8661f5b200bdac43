// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the asset service — a per-user asset
// persistence daemon that accepts, compresses, and serves assets
// over a Unix socket.
//
// # Connection protocol
//
// Each connection carries one request and one response. A message is
// a 4-byte big-endian length prefix followed by a CBOR document; the
// request document contains at minimum an "action" field that selects
// the handler. Asset payloads ride inside the CBOR messages as byte
// strings.
//
// The protocol types live in lib/assetstore/protocol.go.
package main
