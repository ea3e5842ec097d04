// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package citation resolves inline [ID:n] markers in AI answers against
// the retrieved knowledge chunks attached to the message.
//
// Resolution is pure and idempotent: it never mutates its inputs, so it
// is safe to run on partial streamed text on every redraw and to call
// recursively on fenced sub-documents.
package citation

import (
	"regexp"
	"strconv"

	"github.com/jeranaias/kbchat-tui/internal/kb"
)

// markerRegex matches the backend's citation marker contract: [ID:3],
// [Id: 3], [id：3]. The colon may be ASCII or fullwidth, with optional
// spaces on either side. The index is ASCII digits only.
var markerRegex = regexp.MustCompile(`\[(?:ID|Id|id)\s*[:：]\s*([0-9]+)\]`)

// =============================================================================
// SEGMENT TYPES
// =============================================================================

// SegmentKind discriminates resolved output segments.
type SegmentKind int

const (
	// SegmentText is a run of plain text between markers.
	SegmentText SegmentKind = iota
	// SegmentCitation is a citation marker, resolved or dangling.
	SegmentCitation
)

// Segment is one piece of the resolved answer text, in order.
type Segment struct {
	Kind SegmentKind

	// Text is the literal text for SegmentText segments.
	Text string

	// Index is the 1-based chunk index for SegmentCitation segments.
	Index int

	// Chunk is the resolved chunk, or nil for a dangling marker. A
	// dangling marker renders as a plain numeral instead of a citation.
	Chunk *kb.ChunkInfo
}

// Resolution is the result of scanning one answer text.
type Resolution struct {
	// Segments is the ordered alternation of text and citation
	// segments. Concatenating the text segments and marker numerals
	// reproduces the visible answer.
	Segments []Segment

	// CitedChunks lists the chunks cited at least once, de-duplicated,
	// in order of first citation.
	CitedChunks []kb.ChunkInfo
}

// HasCitations reports whether any marker resolved to a chunk.
func (r Resolution) HasCitations() bool {
	return len(r.CitedChunks) > 0
}

// =============================================================================
// RESOLVE
// =============================================================================

// Resolve scans text for citation markers and joins them against the
// given chunks by their 1-based index field. Chunks sharing an index
// resolve to the last one in the slice. Markers whose index has no
// chunk (including index 0 or an out-of-range number) yield a citation
// segment with a nil Chunk; they are never dropped. Marker-free text,
// the empty string included, yields a single text segment equal to
// text.
func Resolve(text string, chunks []kb.ChunkInfo) Resolution {
	var res Resolution

	matches := markerRegex.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		res.Segments = []Segment{{Kind: SegmentText, Text: text}}
		return res
	}

	byIndex := make(map[int]int, len(chunks))
	for i, c := range chunks {
		byIndex[c.Index] = i
	}

	seen := make(map[int]bool)
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > last {
			res.Segments = append(res.Segments, Segment{Kind: SegmentText, Text: text[last:start]})
		}

		digits := text[m[2]:m[3]]
		seg := Segment{Kind: SegmentCitation, Text: digits}
		// Atoi only fails here on overflow; treat that as dangling.
		if n, err := strconv.Atoi(digits); err == nil {
			seg.Index = n
			if i, ok := byIndex[n]; ok {
				chunk := chunks[i]
				seg.Chunk = &chunk
				if !seen[n] {
					seen[n] = true
					res.CitedChunks = append(res.CitedChunks, chunk)
				}
			}
		}
		res.Segments = append(res.Segments, seg)
		last = end
	}
	if last < len(text) {
		res.Segments = append(res.Segments, Segment{Kind: SegmentText, Text: text[last:]})
	}
	return res
}
