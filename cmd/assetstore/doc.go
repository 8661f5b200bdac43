// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the assetstore admin CLI. It operates
// directly on a store root directory — no running service needed —
// for inspection and cleanup:
//
//	assetstore list [--owner <id>] [--json]
//	assetstore show <owner> <asset> [--json]
//	assetstore delete <owner> <asset> [--silent]
//	assetstore purge-owner <owner>
//
// The store root comes from --root, or from the config file named by
// --config / ASSETSTORE_CONFIG.
package main
