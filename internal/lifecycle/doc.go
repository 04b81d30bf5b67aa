// Package lifecycle owns the generation lifecycle for one local inference
// engine: which generation is live, cooperative cancellation, stale-token
// filtering, and context reset. It is structured into small files by concern:
//
//   - controller.go: core Controller type, Config, constructor, getters.
//   - generation.go: StartGeneration, the token pump, and the Stream type.
//   - stop.go: StopGeneration.
//   - reset.go: ResetContext teardown.
//   - ensure.go: EnsureEngine lazy model/session acquisition.
//   - errors.go: error types and helpers (IsEngineNotReady, IsModelNotFound, ...).
//   - events.go: lifecycle event publishing.
//   - status.go: Status/Ready reporting.
//   - metrics.go: Prometheus collectors.
//
// Concurrency discipline: a single mutex guards the model/session handles,
// the active generation, and the cancelled set. The mutex is held only for
// the duration of a check or update, never across an engine call. At most
// one generation is active at any instant; starting a new one supersedes
// the previous, whose pump observes the id mismatch at its next per-token
// check and goes silent. Cancellation is authoritative at this layer
// regardless of how long the engine keeps computing.
//
// External packages should treat this package as the orchestration layer and
// use public methods only (New, StartGeneration, StopGeneration,
// ResetContext, EnsureEngine, Ready, Status, ListModels).
package lifecycle
