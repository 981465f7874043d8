/*
Package domain contains the core model of the escape protocol.

It defines the per-entity escape record, the signals that drive it, the
container classification used to pick contest parameters, and the lifecycle
events emitted around an attempt. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - EscapeState: per-entity record (active attempt handle, cancel affordance, base resist time).
  - Trigger / MoveInput: the movement-intent and cancel signals that may start or stop an attempt.
  - Container / Contest: what currently holds an entity and how hard it is to leave it.
  - Completion: the outcome reported by the timed-interaction scheduler.
  - LifecycleHooks: callbacks for observing attempts (logs, metrics, journals, streams).
*/
package domain
