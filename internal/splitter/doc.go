// Package splitter partitions a long-form episode into semantically coherent
// scenes. Boundary candidates come from a proposer (the LLM in production),
// snap to transcript line boundaries, and the validated partition drives one
// cut and one published delivery event per scene. Cut failures are isolated
// per interval and reported in aggregate.
package splitter
