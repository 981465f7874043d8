package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/resist/pkg/adapters/memory"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Action names a scenario step.
type Action string

const (
	ActionMove     Action = "move"
	ActionRelease  Action = "release" // let go of every movement key
	ActionCancel   Action = "cancel"
	ActionDrop     Action = "drop"
	ActionDamage   Action = "damage"
	ActionRelocate Action = "relocate"
	ActionAdvance  Action = "advance"
	ActionStrip    Action = "strip"
	ActionAttempt  Action = "attempt"
	ActionUpdate   Action = "update"
	ActionExpect   Action = "expect"
)

// Scenario is a world plus a timeline of steps to play against it.
type Scenario struct {
	Name     string       `mapstructure:"name"`
	Locale   string       `mapstructure:"locale"`
	Entities []EntityDecl `mapstructure:"entities"`
	Steps    []Step       `mapstructure:"steps"`
}

// EntityDecl is an entity as written in a scenario file.
type EntityDecl struct {
	ID            string        `mapstructure:"id"`
	Type          string        `mapstructure:"type"`
	Mass          float64       `mapstructure:"mass"`
	Parent        string        `mapstructure:"parent"`
	Features      []string      `mapstructure:"features"`
	InHand        bool          `mapstructure:"in_hand"`
	Swallowed     bool          `mapstructure:"swallowed"`
	Pinned        bool          `mapstructure:"pinned"`
	Incapacitated bool          `mapstructure:"incapacitated"`
	CarriedBy     string        `mapstructure:"carried_by"`
	Escape        bool          `mapstructure:"escape"`
	BaseResist    time.Duration `mapstructure:"base_resist"`
}

// Step is one timeline entry. Only the fields relevant to Action are read.
type Step struct {
	Action     Action        `mapstructure:"action"`
	Entity     string        `mapstructure:"entity"`
	Keys       []string      `mapstructure:"keys"`
	Duration   time.Duration `mapstructure:"duration"`
	Parent     string        `mapstructure:"parent"`
	Container  string        `mapstructure:"container"`
	Multiplier float64       `mapstructure:"multiplier"`
	Set        *Flags        `mapstructure:"set"`
	Expect     *Expectation  `mapstructure:"expect"`
}

// Flags toggles world markers on an entity during the timeline.
type Flags struct {
	InHand        *bool `mapstructure:"in_hand"`
	Swallowed     *bool `mapstructure:"swallowed"`
	Pinned        *bool `mapstructure:"pinned"`
	Incapacitated *bool `mapstructure:"incapacitated"`
}

// Expectation is checked against the current world and engine state.
type Expectation struct {
	Escaping    *bool    `mapstructure:"escaping"`
	Parent      *string  `mapstructure:"parent"`
	Multiplier  *float64 `mapstructure:"multiplier"`
	Affordances *int     `mapstructure:"affordances"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse scenario yaml: %w", err)
	}

	var sc Scenario
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      &sc,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks references and per-action required fields.
func (sc *Scenario) Validate() error {
	known := make(map[string]bool, len(sc.Entities))
	for i, e := range sc.Entities {
		if _, err := SanitizeEntityID(e.ID); err != nil {
			return fmt.Errorf("entity #%d: %w", i, err)
		}
		if known[e.ID] {
			return fmt.Errorf("entity %s declared twice", e.ID)
		}
		known[e.ID] = true
		if _, err := domain.ParseContainerFeatures(e.Features); err != nil {
			return fmt.Errorf("entity %s: %w", e.ID, err)
		}
	}
	for _, e := range sc.Entities {
		for _, ref := range []string{e.Parent, e.CarriedBy} {
			if ref != "" && !known[ref] {
				return fmt.Errorf("entity %s references unknown entity %s", e.ID, ref)
			}
		}
	}

	for i, st := range sc.Steps {
		if err := st.validate(known); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
		}
	}
	return nil
}

func (st Step) validate(known map[string]bool) error {
	needsEntity := st.Action != ActionAdvance
	if needsEntity && !known[st.Entity] {
		return fmt.Errorf("unknown entity %q", st.Entity)
	}

	switch st.Action {
	case ActionMove:
		if _, err := domain.ParseMoveButtons(st.Keys); err != nil {
			return err
		}
	case ActionAdvance:
		if st.Duration <= 0 {
			return fmt.Errorf("duration must be positive")
		}
	case ActionRelocate:
		if st.Parent != "" && !known[st.Parent] {
			return fmt.Errorf("unknown parent %q", st.Parent)
		}
	case ActionAttempt:
		if !known[st.Container] {
			return fmt.Errorf("unknown container %q", st.Container)
		}
	case ActionUpdate:
		if st.Set == nil {
			return fmt.Errorf("missing set")
		}
	case ActionExpect:
		if st.Expect == nil {
			return fmt.Errorf("missing expect")
		}
	case ActionRelease, ActionCancel, ActionDrop, ActionDamage, ActionStrip:
	default:
		return fmt.Errorf("unknown action")
	}
	return nil
}

// Populate spawns the scenario's entities into sb without playing any step.
func (sc *Scenario) Populate(ctx context.Context, sb *Sandbox) error {
	for _, decl := range sc.Entities {
		if err := sb.Spawn(ctx, decl.spec()); err != nil {
			return fmt.Errorf("spawn %s: %w", decl.ID, err)
		}
	}
	return nil
}

// spec converts the declaration into a sandbox entity. Callers validate first.
func (e EntityDecl) spec() EntitySpec {
	features, _ := domain.ParseContainerFeatures(e.Features)
	return EntitySpec{
		Entity: memory.Entity{
			ID:            domain.EntityID(e.ID),
			Type:          e.Type,
			Mass:          e.Mass,
			Parent:        domain.EntityID(e.Parent),
			Features:      features,
			InHand:        e.InHand,
			Swallowed:     e.Swallowed,
			Pinned:        e.Pinned,
			Incapacitated: e.Incapacitated,
			CarriedBy:     domain.EntityID(e.CarriedBy),
		},
		Escape:     e.Escape,
		BaseResist: e.BaseResist,
	}
}

func (f *Flags) apply(e *memory.Entity) {
	if f.InHand != nil {
		e.InHand = *f.InHand
	}
	if f.Swallowed != nil {
		e.Swallowed = *f.Swallowed
	}
	if f.Pinned != nil {
		e.Pinned = *f.Pinned
	}
	if f.Incapacitated != nil {
		e.Incapacitated = *f.Incapacitated
	}
}
