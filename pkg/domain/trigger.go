package domain

import (
	"fmt"
	"strings"
)

// MoveButtons is the set of movement keys held by a player.
type MoveButtons uint8

const (
	MoveUp MoveButtons = 1 << iota
	MoveDown
	MoveLeft
	MoveRight
	MoveWalk // run/walk modifier, not a direction
)

// MoveNone means no movement key is held.
const MoveNone MoveButtons = 0

// DirectionMask selects the directional keys.
const DirectionMask = MoveUp | MoveDown | MoveLeft | MoveRight

var moveButtonNames = []struct {
	bit  MoveButtons
	name string
}{
	{MoveUp, "up"},
	{MoveDown, "down"},
	{MoveLeft, "left"},
	{MoveRight, "right"},
	{MoveWalk, "walk"},
}

// Directional returns only the directional keys of b.
func (b MoveButtons) Directional() MoveButtons {
	return b & DirectionMask
}

// Names lists the keys held in b.
func (b MoveButtons) Names() []string {
	names := make([]string, 0, len(moveButtonNames))
	for _, mb := range moveButtonNames {
		if b&mb.bit != 0 {
			names = append(names, mb.name)
		}
	}
	return names
}

func (b MoveButtons) String() string {
	if b == MoveNone {
		return "none"
	}
	return strings.Join(b.Names(), "+")
}

// ParseMoveButtons builds a key set from names such as "up" or "walk".
func ParseMoveButtons(names []string) (MoveButtons, error) {
	var b MoveButtons
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || name == "none" {
			continue
		}
		found := false
		for _, mb := range moveButtonNames {
			if mb.name == name {
				b |= mb.bit
				found = true
				break
			}
		}
		if !found {
			return MoveNone, fmt.Errorf("unknown move button %q", raw)
		}
	}
	return b, nil
}

// MoveInput is one movement-intent observation: the keys held before and after.
type MoveInput struct {
	Previous MoveButtons `json:"previous"`
	Current  MoveButtons `json:"current"`
}

// IsDirectionalChange reports whether the input carries a genuine new directional input.
// Toggling only the walk modifier fires the signal too, with the directional keys unchanged;
// those observations are rejected here.
func (m MoveInput) IsDirectionalChange() bool {
	if m.Current.Directional() == MoveNone {
		return false
	}
	return m.Previous.Directional() != m.Current.Directional()
}

// TriggerKind identifies what kind of observation reached the controller.
type TriggerKind string

const (
	TriggerMovement TriggerKind = "movement"
	TriggerCancel   TriggerKind = "cancel"
)

// Trigger is an input evaluated by the escape controller.
type Trigger struct {
	Kind TriggerKind `json:"kind"`
	Move MoveInput   `json:"move,omitempty"`
}

// MovementTrigger wraps a move observation.
func MovementTrigger(previous, current MoveButtons) Trigger {
	return Trigger{Kind: TriggerMovement, Move: MoveInput{Previous: previous, Current: current}}
}

// CancelTrigger is the cancel-affordance activation.
func CancelTrigger() Trigger {
	return Trigger{Kind: TriggerCancel}
}
