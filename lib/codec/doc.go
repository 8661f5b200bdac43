// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the standard CBOR encoding configuration
// for the asset service's wire protocol and any on-disk state that
// is not an external contract.
//
// Two serialization formats are used with a clear boundary:
//
//   - JSON for external contracts: the metadata.json sidecar stored
//     next to every asset payload, and CLI --json output.
//   - CBOR for the internal service socket protocol.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length
// items. Same logical data always produces identical bytes.
//
// Protocol types carry `json` struct tags only — fxamacker/cbor v2
// reads json tags as fallback when cbor tags are absent, so a single
// tag controls field naming and omitempty for both formats.
package codec
