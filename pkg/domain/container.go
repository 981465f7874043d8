package domain

import (
	"fmt"
	"strings"
	"time"
)

// ContainerFeatures are the container capabilities an owner entity exposes.
type ContainerFeatures uint8

const (
	FeatureStorage ContainerFeatures = 1 << iota
	FeatureInventory
	FeatureStash
)

var featureNames = []struct {
	bit  ContainerFeatures
	name string
}{
	{FeatureStorage, "storage"},
	{FeatureInventory, "inventory"},
	{FeatureStash, "stash"},
}

// Has reports whether all of want are present.
func (f ContainerFeatures) Has(want ContainerFeatures) bool {
	return f&want == want
}

// Uncontested reports whether the features include any plain storage-like container.
func (f ContainerFeatures) Uncontested() bool {
	return f&(FeatureStorage|FeatureInventory|FeatureStash) != 0
}

func (f ContainerFeatures) String() string {
	names := make([]string, 0, len(featureNames))
	for _, fn := range featureNames {
		if f&fn.bit != 0 {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// ParseContainerFeatures builds a feature set from names such as "storage".
func ParseContainerFeatures(names []string) (ContainerFeatures, error) {
	var f ContainerFeatures
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		found := false
		for _, fn := range featureNames {
			if fn.name == name {
				f |= fn.bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown container feature %q", raw)
		}
	}
	return f, nil
}

// Container is the immediate holder of a contained entity, as reported by the containment query.
// It is looked up on demand and never cached across signals.
type Container struct {
	Owner    EntityID          `json:"owner"`
	Features ContainerFeatures `json:"features"`
}

// ContestKind is the classification of an escape: which rule sets the difficulty.
type ContestKind string

const (
	ContestNone        ContestKind = "none"        // no escape is offered
	ContestHeld        ContestKind = "held"        // hand grip, mass contest
	ContestSwallowed   ContestKind = "swallowed"   // held internally, fixed multiplier
	ContestUncontested ContestKind = "uncontested" // storage, inventory or stash
	ContestForced      ContestKind = "forced"      // started by another feature with its own multiplier
)

// Contest is the resolved difficulty of an escape.
type Contest struct {
	Kind       ContestKind `json:"kind"`
	Multiplier float64     `json:"multiplier"`
}

// Offered reports whether an attempt should be started at all.
func (c Contest) Offered() bool {
	return c.Kind != ContestNone && c.Kind != ""
}

// Profile is the static description of an entity type.
type Profile struct {
	Type           string        `json:"type"`
	BaseResistTime time.Duration `json:"base_resist_time"`
	Mass           float64       `json:"mass"`
}
