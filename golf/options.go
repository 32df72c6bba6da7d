package golf

// Options holds the rule variants a game was started with. Zero value is
// classic golf. wolfpack and negative_pairs_keep_value are accepted tags
// with no scoring effect yet.
// TODO: wire wolfpack once the team-play ruleset is settled.
type Options struct {
	SuperKings            bool `json:"super_kings,omitempty"`
	LuckySevens           bool `json:"lucky_sevens,omitempty"`
	TenPenny              bool `json:"ten_penny,omitempty"`
	LuckySwing            bool `json:"lucky_swing,omitempty"`
	FourOfAKind           bool `json:"four_of_a_kind,omitempty"`
	QueensWild            bool `json:"queens_wild,omitempty"`
	EagleEye              bool `json:"eagle_eye,omitempty"`
	Blackjack             bool `json:"blackjack,omitempty"`
	KnockPenalty          bool `json:"knock_penalty,omitempty"`
	KnockBonus            bool `json:"knock_bonus,omitempty"`
	UnderdogBonus         bool `json:"underdog_bonus,omitempty"`
	TiedShame             bool `json:"tied_shame,omitempty"`
	FlipOnDiscard         bool `json:"flip_on_discard,omitempty"`
	FlipAsAction          bool `json:"flip_as_action,omitempty"`
	KnockEarly            bool `json:"knock_early,omitempty"`
	Wolfpack              bool `json:"wolfpack,omitempty"`
	NegativePairsKeepVals bool `json:"negative_pairs_keep_value,omitempty"`
}

// OptionsFromFlags builds Options from a client flag map. Unknown flags are
// ignored rather than rejected.
func OptionsFromFlags(flags map[string]bool) Options {
	var o Options
	for name, on := range flags {
		if !on {
			continue
		}
		switch name {
		case "super_kings":
			o.SuperKings = true
		case "lucky_sevens":
			o.LuckySevens = true
		case "ten_penny":
			o.TenPenny = true
		case "lucky_swing":
			o.LuckySwing = true
		case "four_of_a_kind":
			o.FourOfAKind = true
		case "queens_wild":
			o.QueensWild = true
		case "eagle_eye":
			o.EagleEye = true
		case "blackjack":
			o.Blackjack = true
		case "knock_penalty":
			o.KnockPenalty = true
		case "knock_bonus":
			o.KnockBonus = true
		case "underdog_bonus":
			o.UnderdogBonus = true
		case "tied_shame":
			o.TiedShame = true
		case "flip_on_discard":
			o.FlipOnDiscard = true
		case "flip_as_action":
			o.FlipAsAction = true
		case "knock_early":
			o.KnockEarly = true
		case "wolfpack":
			o.Wolfpack = true
		case "negative_pairs_keep_value":
			o.NegativePairsKeepVals = true
		}
	}
	return o
}

// Flags returns the enabled variants as a flag map, for the wire.
func (o Options) Flags() map[string]bool {
	out := map[string]bool{}
	set := func(name string, on bool) {
		if on {
			out[name] = true
		}
	}
	set("super_kings", o.SuperKings)
	set("lucky_sevens", o.LuckySevens)
	set("ten_penny", o.TenPenny)
	set("lucky_swing", o.LuckySwing)
	set("four_of_a_kind", o.FourOfAKind)
	set("queens_wild", o.QueensWild)
	set("eagle_eye", o.EagleEye)
	set("blackjack", o.Blackjack)
	set("knock_penalty", o.KnockPenalty)
	set("knock_bonus", o.KnockBonus)
	set("underdog_bonus", o.UnderdogBonus)
	set("tied_shame", o.TiedShame)
	set("flip_on_discard", o.FlipOnDiscard)
	set("flip_as_action", o.FlipAsAction)
	set("knock_early", o.KnockEarly)
	set("wolfpack", o.Wolfpack)
	set("negative_pairs_keep_value", o.NegativePairsKeepVals)
	return out
}

// JokerCount returns how many jokers the deck carries. Lucky swing plays
// with a single joker regardless of deck count.
func (o Options) JokerCount(numDecks int) int {
	if o.LuckySwing {
		return 1
	}
	return 2 * numDecks
}
