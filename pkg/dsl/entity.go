package dsl

import (
	"time"

	"github.com/aretw0/resist/pkg/runner"
)

// EntityBuilder provides a fluent API for declaring an entity.
type EntityBuilder struct {
	builder *Builder
	index   int
}

func (e *EntityBuilder) decl() *runner.EntityDecl {
	return &e.builder.scenario.Entities[e.index]
}

// Type sets the entity type used to look up its profile.
func (e *EntityBuilder) Type(typ string) *EntityBuilder {
	e.decl().Type = typ
	return e
}

// Mass sets the mass used by the grip contest.
func (e *EntityBuilder) Mass(m float64) *EntityBuilder {
	e.decl().Mass = m
	return e
}

// In places the entity inside parent.
func (e *EntityBuilder) In(parent string) *EntityBuilder {
	e.decl().Parent = parent
	return e
}

// Features marks the entity as a container offering the named features (storage, inventory, stash).
func (e *EntityBuilder) Features(names ...string) *EntityBuilder {
	e.decl().Features = append(e.decl().Features, names...)
	return e
}

// InHand marks the entity as gripped by its parent's hand.
func (e *EntityBuilder) InHand() *EntityBuilder {
	e.decl().InHand = true
	return e
}

// Swallowed marks the entity as held inside its parent's body.
func (e *EntityBuilder) Swallowed() *EntityBuilder {
	e.decl().Swallowed = true
	return e
}

// Pinned forbids removing the entity from its parent.
func (e *EntityBuilder) Pinned() *EntityBuilder {
	e.decl().Pinned = true
	return e
}

// Incapacitated stops the entity from interacting at all.
func (e *EntityBuilder) Incapacitated() *EntityBuilder {
	e.decl().Incapacitated = true
	return e
}

// CarriedBy marks the entity as carried by carrier.
func (e *EntityBuilder) CarriedBy(carrier string) *EntityBuilder {
	e.decl().CarriedBy = carrier
	return e
}

// Escapes gives the entity the escape capability. A zero base resist time
// resolves it from the entity's profile.
func (e *EntityBuilder) Escapes(baseResist time.Duration) *EntityBuilder {
	d := e.decl()
	d.Escape = true
	d.BaseResist = baseResist
	return e
}

// Then returns to the scenario builder.
func (e *EntityBuilder) Then() *Builder {
	return e.builder
}

// FlagsBuilder sets the markers changed by an update step.
type FlagsBuilder struct {
	builder *Builder
	flags   *runner.Flags
}

// InHand sets or clears the hand grip marker.
func (f *FlagsBuilder) InHand(v bool) *FlagsBuilder {
	f.flags.InHand = &v
	return f
}

// Swallowed sets or clears the swallowed marker.
func (f *FlagsBuilder) Swallowed(v bool) *FlagsBuilder {
	f.flags.Swallowed = &v
	return f
}

// Pinned sets or clears the pinned marker.
func (f *FlagsBuilder) Pinned(v bool) *FlagsBuilder {
	f.flags.Pinned = &v
	return f
}

// Incapacitated sets or clears the incapacitated marker.
func (f *FlagsBuilder) Incapacitated(v bool) *FlagsBuilder {
	f.flags.Incapacitated = &v
	return f
}

// Then returns to the scenario builder.
func (f *FlagsBuilder) Then() *Builder {
	return f.builder
}

// ExpectBuilder sets the checks of an expect step.
type ExpectBuilder struct {
	builder *Builder
	expect  *runner.Expectation
}

// Escaping checks whether an attempt is in flight.
func (x *ExpectBuilder) Escaping(v bool) *ExpectBuilder {
	x.expect.Escaping = &v
	return x
}

// Parent checks the immediate container; empty is the world.
func (x *ExpectBuilder) Parent(id string) *ExpectBuilder {
	x.expect.Parent = &id
	return x
}

// Multiplier checks the difficulty multiplier of the current attempt.
func (x *ExpectBuilder) Multiplier(m float64) *ExpectBuilder {
	x.expect.Multiplier = &m
	return x
}

// Affordances checks how many controls the entity holds.
func (x *ExpectBuilder) Affordances(n int) *ExpectBuilder {
	x.expect.Affordances = &n
	return x
}

// Then returns to the scenario builder.
func (x *ExpectBuilder) Then() *Builder {
	return x.builder
}
