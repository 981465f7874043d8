/*
Package runner plays escape scenarios and assembles the in-memory stack that every
outer surface drives.

A Sandbox wires the engine to a memory.World, a doafter.Scheduler and an affordance
registry. A Runner loads a YAML scenario (a world plus a timeline of steps), plays
it on a virtual clock and returns a Transcript of steps, localized notices and
lifecycle events.

# Scenario format

	name: cat in hand
	entities:
	  - {id: room}
	  - {id: human, parent: room, mass: 70}
	  - {id: cat, parent: human, in_hand: true, mass: 35, escape: true, base_resist: 2s}
	steps:
	  - {action: move, entity: cat, keys: [up]}
	  - {action: advance, duration: 4s}
	  - {action: expect, entity: cat, expect: {escaping: false, parent: room}}

# Usage

	sc, err := runner.LoadScenario("cat.yaml")
	if err != nil {
		log.Fatal(err)
	}
	transcript, err := runner.NewRunner().Run(ctx, sc)
*/
package runner
