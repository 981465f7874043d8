package dsl

import (
	"fmt"
	"time"

	"github.com/aretw0/resist/pkg/runner"
)

// Builder accumulates a scenario: the starting world and its timeline.
type Builder struct {
	scenario runner.Scenario
	entities map[string]*EntityBuilder
}

// New creates a builder for a scenario called name.
func New(name string) *Builder {
	return &Builder{
		scenario: runner.Scenario{Name: name},
		entities: make(map[string]*EntityBuilder),
	}
}

// Locale sets the locale of player notifications.
func (b *Builder) Locale(locale string) *Builder {
	b.scenario.Locale = locale
	return b
}

// Entity declares an entity of the starting world.
// If the entity already exists, it returns the existing builder.
func (b *Builder) Entity(id string) *EntityBuilder {
	if eb, ok := b.entities[id]; ok {
		return eb
	}
	b.scenario.Entities = append(b.scenario.Entities, runner.EntityDecl{ID: id})
	eb := &EntityBuilder{builder: b, index: len(b.scenario.Entities) - 1}
	b.entities[id] = eb
	return eb
}

func (b *Builder) step(st runner.Step) *Builder {
	b.scenario.Steps = append(b.scenario.Steps, st)
	return b
}

// Move makes entity hold exactly keys (none releases every key).
func (b *Builder) Move(entity string, keys ...string) *Builder {
	return b.step(runner.Step{Action: runner.ActionMove, Entity: entity, Keys: keys})
}

// Release lets go of every movement key.
func (b *Builder) Release(entity string) *Builder {
	return b.step(runner.Step{Action: runner.ActionRelease, Entity: entity})
}

// Cancel presses the entity's cancel control.
func (b *Builder) Cancel(entity string) *Builder {
	return b.step(runner.Step{Action: runner.ActionCancel, Entity: entity})
}

// Drop lets go of entity from the outside.
func (b *Builder) Drop(entity string) *Builder {
	return b.step(runner.Step{Action: runner.ActionDrop, Entity: entity})
}

// Damage hurts entity.
func (b *Builder) Damage(entity string) *Builder {
	return b.step(runner.Step{Action: runner.ActionDamage, Entity: entity})
}

// Relocate moves entity into parent; an empty parent is the world.
func (b *Builder) Relocate(entity, parent string) *Builder {
	return b.step(runner.Step{Action: runner.ActionRelocate, Entity: entity, Parent: parent})
}

// Advance moves the virtual clock forward.
func (b *Builder) Advance(d time.Duration) *Builder {
	return b.step(runner.Step{Action: runner.ActionAdvance, Duration: d})
}

// Strip removes the escape capability of entity.
func (b *Builder) Strip(entity string) *Builder {
	return b.step(runner.Step{Action: runner.ActionStrip, Entity: entity})
}

// Attempt starts an escape directly, bypassing the movement trigger.
func (b *Builder) Attempt(entity, container string, multiplier float64) *Builder {
	return b.step(runner.Step{Action: runner.ActionAttempt, Entity: entity, Container: container, Multiplier: multiplier})
}

// Update changes markers of entity mid-scenario.
func (b *Builder) Update(entity string) *FlagsBuilder {
	st := runner.Step{Action: runner.ActionUpdate, Entity: entity, Set: &runner.Flags{}}
	b.step(st)
	return &FlagsBuilder{builder: b, flags: st.Set}
}

// Expect checks the state of entity at this point of the timeline.
func (b *Builder) Expect(entity string) *ExpectBuilder {
	st := runner.Step{Action: runner.ActionExpect, Entity: entity, Expect: &runner.Expectation{}}
	b.step(st)
	return &ExpectBuilder{builder: b, expect: st.Expect}
}

// Build validates and returns the scenario.
func (b *Builder) Build() (*runner.Scenario, error) {
	sc := b.scenario
	sc.Entities = append([]runner.EntityDecl(nil), b.scenario.Entities...)
	sc.Steps = append([]runner.Step(nil), b.scenario.Steps...)
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %q: %w", sc.Name, err)
	}
	return &sc, nil
}
