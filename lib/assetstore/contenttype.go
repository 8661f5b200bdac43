// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import "sort"

// TypeSet is an immutable set of MIME content types. The three
// package-level sets below are external contracts: collaborators
// (upload handlers, the bookmark crawler) query them to validate
// input before it reaches the store.
type TypeSet struct {
	types map[string]struct{}
}

func newTypeSet(types ...string) TypeSet {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return TypeSet{types: set}
}

// Contains reports whether contentType is in the set.
func (s TypeSet) Contains(contentType string) bool {
	_, ok := s.types[contentType]
	return ok
}

// Types returns the set's members in sorted order.
func (s TypeSet) Types() []string {
	result := make([]string, 0, len(s.types))
	for t := range s.types {
		result = append(result, t)
	}
	sort.Strings(result)
	return result
}

// StorageTypes is the full set of content types the store accepts.
// Save rejects anything outside this set.
var StorageTypes = newTypeSet(
	"image/jpeg",
	"image/png",
	"image/webp",
	"text/html",
	"application/pdf",
	"video/mp4",
)

// UploadTypes governs direct user uploads: html and video are
// excluded because uploads arrive unsanitized.
var UploadTypes = newTypeSet(
	"image/jpeg",
	"image/png",
	"image/webp",
	"application/pdf",
)

// BookmarkTypes governs assets attached to bookmarks. Today the
// membership matches UploadTypes, but the two are separate contracts
// that evolve independently — callers must query the set that names
// their path.
var BookmarkTypes = newTypeSet(
	"image/jpeg",
	"image/png",
	"image/webp",
	"application/pdf",
)
