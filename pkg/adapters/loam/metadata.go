package loam

// ProfileMetadata is the frontmatter of an entity profile document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
//
//	---
//	type: mouse
//	base_resist_time: 2s
//	mass: 0.5
//	---
//	Small and slippery.
type ProfileMetadata struct {
	Type string `json:"type" mapstructure:"type"`

	// BaseResistTime is a Go duration ("2s", "1m30s") or a number of seconds.
	BaseResistTime any `json:"base_resist_time" mapstructure:"base_resist_time"`

	// Mass feeds the mass contest of the in-memory world.
	Mass any `json:"mass" mapstructure:"mass"`
}
