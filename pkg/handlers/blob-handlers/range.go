/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package blob_handlers

import (
	"fmt"
	"strconv"
	"strings"

	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

// ByteRange is a resolved, inclusive byte range within an object of known
// size.
type ByteRange struct {
	Start int64
	End   int64
}

func (r *ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range response header value.
func (r *ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// Spec renders the range in request form for the backend read.
func (r *ByteRange) Spec() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// ParseRange resolves a single-range Range header against an object of the
// given size. An empty header yields (nil, nil): a full read. Multi-range
// requests and malformed or unsatisfiable ranges yield 416.
func ParseRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return nil, commonerrors.NewRangeNotSatisfiable(fmt.Sprintf("unsupported range %q", header))
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, commonerrors.NewRangeNotSatisfiable(fmt.Sprintf("malformed range %q", header))
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	// Suffix form bytes=-n: the final n bytes.
	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, commonerrors.NewRangeNotSatisfiable(fmt.Sprintf("malformed range %q", header))
		}
		if n >= size {
			return &ByteRange{Start: 0, End: size - 1}, nil
		}
		return &ByteRange{Start: size - n, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return nil, commonerrors.NewRangeNotSatisfiable(fmt.Sprintf("range start out of bounds in %q", header))
	}
	// Open form bytes=a-: from a to the end.
	if endStr == "" {
		return &ByteRange{Start: start, End: size - 1}, nil
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < start {
		return nil, commonerrors.NewRangeNotSatisfiable(fmt.Sprintf("malformed range %q", header))
	}
	if end >= size {
		end = size - 1
	}
	return &ByteRange{Start: start, End: end}, nil
}
