// Package generation defines the boundary between the job pipeline and the
// external AI services it depends on: an LLM that turns document text into
// structured study material, and a speech engine that narrates podcasts.
// Implementations live under internal/platform.
package generation
