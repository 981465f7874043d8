/*
Package ports defines the driven ports (interfaces) of the escape engine.

These interfaces decouple the escape protocol from the systems it collaborates
with, allowing the controller to run against an in-memory world in tests, a
tick-driven scheduler in simulations, and any persistence backend.

# Key Interfaces

  - Scheduler: starts and cancels the timed interaction behind an attempt.
  - ContainmentQuery / MarkerQuery / InteractionPolicy: read-only world lookups used for gating and classification.
  - ContestEvaluator: turns two entities into a difficulty multiplier.
  - Carrying / Detacher: the two mutually exclusive release behaviors.
  - AffordanceRegistry / Notifier: player-facing side effects.
  - StateStore: persists per-entity escape records.
  - DistributedLocker: serializes signal handling for one entity across replicas.
  - ProfileSource: resolves the base resist time of an entity type.
*/
package ports
