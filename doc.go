/*
Package resist implements the escape attempt protocol: the state machine that lets an
entity confined inside another (a hand grip, a storage container, an inventory, a
hidden stash, a carrier) struggle free.

# Concept

An entity with the escape capability owns a small record that is either idle or
escaping. A movement intent (a genuine new directional input) starts an attempt when
the entity is contained, removal is currently permitted and the container kind offers
an escape. The attempt is a cooperative timed interaction run by an external
scheduler; its duration is the entity's base resist time scaled by a difficulty
multiplier:

  - Swallowed (held internally): fixed 5x.
  - Held in a hand: the mass contest between container and entity.
  - Storage, inventory or stash: 1x.
  - Anything else: no escape is offered.

While escaping the entity holds a cancel affordance. The attempt ends exactly once:
the timer completes and the entity is released (dropped by its carrier, or detached
to its container's parent or the world), or the attempt is cancelled, interrupted by
an external drop, or the capability is stripped.

# Hexagonal Architecture

The engine never touches the world directly. Containment, markers, the contest, the
carrying feature, detachment, the scheduler, affordances and notifications are ports
(see package ports) supplied through Dependencies. Records are persisted through a
ports.StateStore (memory by default, redis in package adapters/redis, JSON files in
package adapters/file) and every signal
for an entity is serialized by a session manager, optionally across replicas.

# Usage

	world := memory.NewWorld()
	scheduler := doafter.New()
	eng, err := resist.New(resist.Dependencies{
		Scheduler:   scheduler,
		Containment: world,
		Detacher:    world,
		Affordances: registry.NewRegistry(),
		Markers:     world,
		Contest:     world,
		Carrying:    world,
	})
	if err != nil {
		log.Fatal(err)
	}
	scheduler.Bind(eng.CompletionSink())

	_, _ = eng.Attach(ctx, "mouse", 2*time.Second)
	_ = eng.HandleMove(ctx, "mouse", domain.MoveInput{Current: domain.MoveUp})
	scheduler.Tick(ctx) // completion is delivered back to the engine
*/
package resist
