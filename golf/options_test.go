package golf

import "testing"

func TestOptionsFromFlags(t *testing.T) {
	o := OptionsFromFlags(map[string]bool{
		"super_kings":     true,
		"flip_on_discard": true,
		"knock_bonus":     false,
		"reverse_gravity": true, // unknown flags are ignored
		"wolfpack":        true,
	})
	if !o.SuperKings || !o.FlipOnDiscard || !o.Wolfpack {
		t.Fatalf("flags not applied: %+v", o)
	}
	if o.KnockBonus {
		t.Fatalf("false flag was applied")
	}

	flags := o.Flags()
	if len(flags) != 3 {
		t.Fatalf("Flags() = %v", flags)
	}
	if !flags["super_kings"] || !flags["flip_on_discard"] || !flags["wolfpack"] {
		t.Fatalf("Flags() round trip lost entries: %v", flags)
	}
}

func TestJokerCount(t *testing.T) {
	if got := (Options{}).JokerCount(1); got != 2 {
		t.Fatalf("one deck jokers = %d, want 2", got)
	}
	if got := (Options{}).JokerCount(3); got != 6 {
		t.Fatalf("three deck jokers = %d, want 6", got)
	}
	if got := (Options{LuckySwing: true}).JokerCount(3); got != 1 {
		t.Fatalf("lucky swing jokers = %d, want 1", got)
	}
}

func TestStartParamsNormalize(t *testing.T) {
	p := StartParams{NumDecks: 0, NumRounds: 99, InitialFlips: -1}
	p.Normalize()
	if p.NumDecks != 1 || p.NumRounds != 18 || p.InitialFlips != 0 {
		t.Fatalf("normalized = %+v", p)
	}
	p = StartParams{NumDecks: 5, NumRounds: 0, InitialFlips: 7}
	p.Normalize()
	if p.NumDecks != 3 || p.NumRounds != 1 || p.InitialFlips != 2 {
		t.Fatalf("normalized = %+v", p)
	}
}
