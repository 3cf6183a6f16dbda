// Package media holds transcript types shared across the splitter and ingest
// pipeline: ordered timestamped lines, SubRip parsing, and small helpers for
// deriving titles and text windows from them.
//
// A Transcript is the source of truth for raw timing. Scene boundaries are
// only ever placed on line boundaries, so the type exposes the legal cut
// points directly.
package media
