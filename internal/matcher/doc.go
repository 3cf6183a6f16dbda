// Package matcher resolves extracted vocabulary candidates into annotations:
// it validates spans against segment text, keeps the first candidate per
// (label, part of speech) pair within a segment, and packages span evidence
// for the occurrence rows the store persists.
package matcher
