package npc

// BrainProfile tunes the rule brain's heuristics. All knobs are 0..1.
type BrainProfile struct {
	Riskiness    float64 `json:"riskiness"`
	DiscardBias  float64 `json:"discard_bias"`
	KnockCaution float64 `json:"knock_caution"`
	Randomness   float64 `json:"randomness"`
}

// Profile is one CPU opponent identity. Each profile may back at most one
// seated CPU at a time; the registry enforces that.
type Profile struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Tagline   string       `json:"tagline,omitempty"`
	AvatarKey string       `json:"avatar_key,omitempty"`
	Brain     BrainProfile `json:"brain"`
}

// DefaultProfiles is the built-in roster, used when no profile file is
// configured.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			ID: "steady-eddie", Name: "Steady Eddie",
			Tagline:   "Slow and low, that is the tempo.",
			AvatarKey: "eddie",
			Brain:     BrainProfile{Riskiness: 0.2, DiscardBias: 0.3, KnockCaution: 0.8, Randomness: 0.1},
		},
		{
			ID: "gale", Name: "Gale Force",
			Tagline:   "Knocks before you blink.",
			AvatarKey: "gale",
			Brain:     BrainProfile{Riskiness: 0.8, DiscardBias: 0.5, KnockCaution: 0.2, Randomness: 0.3},
		},
		{
			ID: "prof-par", Name: "Professor Par",
			Tagline:   "Plays the percentages.",
			AvatarKey: "professor",
			Brain:     BrainProfile{Riskiness: 0.4, DiscardBias: 0.6, KnockCaution: 0.6, Randomness: 0.05},
		},
		{
			ID: "mulligan", Name: "Mulligan",
			Tagline:   "Everything is salvageable.",
			AvatarKey: "mulligan",
			Brain:     BrainProfile{Riskiness: 0.5, DiscardBias: 0.2, KnockCaution: 0.5, Randomness: 0.4},
		},
		{
			ID: "birdie", Name: "Birdie",
			Tagline:   "Chases pairs like worms.",
			AvatarKey: "birdie",
			Brain:     BrainProfile{Riskiness: 0.6, DiscardBias: 0.7, KnockCaution: 0.4, Randomness: 0.2},
		},
		{
			ID: "sandbag-sam", Name: "Sandbag Sam",
			Tagline:   "Never shows a card early.",
			AvatarKey: "sam",
			Brain:     BrainProfile{Riskiness: 0.3, DiscardBias: 0.4, KnockCaution: 0.9, Randomness: 0.15},
		},
	}
}
