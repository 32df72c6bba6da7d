package golf

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"golf-lite/card"
)

// Game is the authoritative state of one golf game. All exported
// operations lock g.mu, validate, then mutate; rejected operations emit
// nothing and change nothing. Helpers with the Locked suffix require the
// caller to hold g.mu.
//
// Every successful operation returns the events it appended to the game's
// history. The caller persists them before fanning state out.
type Game struct {
	mu  sync.Mutex
	cfg Config
	rng *rand.Rand

	phase   Phase
	players []*Player
	opts    Options

	numDecks     int
	totalRounds  int
	initialFlips int

	deck    *card.Deck
	discard []card.Card

	round      int
	currentIdx int

	drawnCard        *card.Card
	drawnFromDiscard bool
	awaitingFlip     bool

	finisherID     string
	finalTurnDone  map[string]bool
	initialFlipped map[string]bool

	lastSeq uint64
}

func NewGame(cfg Config) *Game {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Game{
		cfg:            cfg,
		rng:            rand.New(rand.NewSource(seed)),
		phase:          PhaseWaiting,
		finalTurnDone:  map[string]bool{},
		initialFlipped: map[string]bool{},
	}
}

func (g *Game) ID() string       { return g.cfg.ID }
func (g *Game) RoomCode() string { return g.cfg.RoomCode }

func (g *Game) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

func (g *Game) LastSeq() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSeq
}

func (g *Game) Options() Options {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opts
}

// Created emits the game's first event. Call exactly once, before any
// player joins.
func (g *Game) Created() Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.emitLocked(EventGameCreated, "", GameCreatedData{
		RoomCode: g.cfg.RoomCode,
		HostID:   g.cfg.HostID,
	})
}

// AddPlayer seats a player. Only valid while waiting.
func (g *Game) AddPlayer(id, name string, isCPU bool, profileID string) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseWaiting {
		return nil, ErrWrongPhase
	}
	if len(g.players) >= MaxPlayers {
		return nil, ErrGameFull
	}
	if g.playerLocked(id) != nil {
		return nil, ErrDuplicatePlayer
	}
	g.addPlayerLocked(id, name, isCPU, profileID)
	ev := g.emitLocked(EventPlayerJoined, id, PlayerJoinedData{
		Name: name, IsCPU: isCPU, ProfileID: profileID,
	})
	return []Event{ev}, nil
}

// RemovePlayer unseats a player in any phase. Mid-round, a held drawn card
// goes face-up to the discard pile, and the round ends early when fewer
// than MinPlayers remain or every remaining player already had their final
// turn.
func (g *Game) RemovePlayer(id string) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.playerLocked(id) == nil {
		return nil, ErrUnknownPlayer
	}
	roundEnds := g.removePlayerLocked(id)
	evs := []Event{g.emitLocked(EventPlayerLeft, id, nil)}
	if roundEnds {
		data := g.roundEndLocked()
		evs = append(evs, g.emitLocked(EventRoundEnded, "", data))
	}
	return evs, nil
}

// StartGame deals the first round. Host authorization is the caller's
// concern; the engine only checks phase and seat count.
func (g *Game) StartGame(hostID string, params StartParams) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseWaiting {
		return nil, ErrWrongPhase
	}
	if len(g.players) < MinPlayers {
		return nil, ErrNotEnoughPlayers
	}
	params.Normalize()
	g.startLocked(params)
	ids := make([]string, len(g.players))
	for i, p := range g.players {
		ids[i] = p.ID
	}
	started := g.emitLocked(EventGameStarted, hostID, GameStartedData{
		NumDecks:     params.NumDecks,
		NumRounds:    params.NumRounds,
		InitialFlips: params.InitialFlips,
		Options:      params.Options,
		PlayerIDs:    ids,
	})
	seed := g.nextDeckSeedLocked()
	data := g.startRoundLocked(seed)
	round := g.emitLocked(EventRoundStarted, "", data)
	return []Event{started, round}, nil
}

// FlipInitial flips a player's opening cards. The position count must
// match the configured initial flip count.
func (g *Game) FlipInitial(playerID string, positions []int) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseInitialFlip {
		return nil, ErrWrongPhase
	}
	p := g.playerLocked(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if g.initialFlipped[playerID] {
		return nil, ErrAlreadyFlipped
	}
	if len(positions) != g.initialFlips {
		return nil, ErrInvalidState("initial flip needs exactly the configured count")
	}
	seen := map[int]bool{}
	for _, pos := range positions {
		if pos < 0 || pos >= len(p.Cards) || seen[pos] {
			return nil, ErrInvalidPosition
		}
		if p.Cards[pos].FaceUp {
			return nil, ErrPositionFaceUp
		}
		seen[pos] = true
	}
	revealed := g.flipInitialLocked(p, positions)
	ev := g.emitLocked(EventInitialFlip, playerID, InitialFlipData{
		Positions: positions, Cards: revealed,
	})
	return []Event{ev}, nil
}

// DrawCard takes the top of the chosen pile. An exhausted deck triggers
// the discard reshuffle; with nothing left anywhere the round ends
// gracefully instead.
func (g *Game) DrawCard(playerID, source string) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireTurnLocked(playerID); err != nil {
		return nil, err
	}
	if g.drawnCard != nil {
		return nil, ErrCardAlreadyDrawn
	}
	if g.awaitingFlip {
		return nil, ErrFlipPending
	}
	switch source {
	case SourceDeck:
		if g.deck.Len() == 0 && len(g.discard) < 2 {
			data := g.roundEndLocked()
			return []Event{g.emitLocked(EventRoundEnded, "", data)}, nil
		}
	case SourceDiscard:
		if len(g.discard) == 0 {
			return nil, ErrEmptyDiscard
		}
	default:
		return nil, ErrInvalidState("unknown draw source")
	}
	g.drawLocked(source)
	ev := g.emitLocked(EventCardDrawn, playerID, CardDrawnData{Source: source})
	return []Event{ev}, nil
}

// SwapCard places the drawn card face-up at position and moves the
// replaced card to the discard pile, then runs the end-of-turn check.
func (g *Game) SwapCard(playerID string, position int) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireTurnLocked(playerID); err != nil {
		return nil, err
	}
	if g.drawnCard == nil {
		return nil, ErrNoDrawnCard
	}
	p := g.playerLocked(playerID)
	if position < 0 || position >= len(p.Cards) {
		return nil, ErrInvalidPosition
	}
	data := g.swapLocked(p, position)
	evs := []Event{g.emitLocked(EventCardSwapped, playerID, data)}
	return g.endTurnEventsLocked(playerID, evs), nil
}

// DiscardDrawn throws away a card drawn from the deck. A card taken from
// the discard pile must be swapped, never re-discarded.
func (g *Game) DiscardDrawn(playerID string) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireTurnLocked(playerID); err != nil {
		return nil, err
	}
	if g.drawnCard == nil {
		return nil, ErrNoDrawnCard
	}
	if g.drawnFromDiscard {
		return nil, ErrMustSwapDiscard
	}
	data := g.discardDrawnLocked(g.playerLocked(playerID))
	evs := []Event{g.emitLocked(EventCardDiscarded, playerID, data)}
	if data.AwaitFlip {
		return evs, nil
	}
	return g.endTurnEventsLocked(playerID, evs), nil
}

// FlipAndEndTurn resolves the pending flip after a discard under
// flip_on_discard.
func (g *Game) FlipAndEndTurn(playerID string, position int) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireTurnLocked(playerID); err != nil {
		return nil, err
	}
	if !g.awaitingFlip {
		return nil, ErrNoFlipPending
	}
	p := g.playerLocked(playerID)
	if position < 0 || position >= len(p.Cards) {
		return nil, ErrInvalidPosition
	}
	if p.Cards[position].FaceUp {
		return nil, ErrPositionFaceUp
	}
	data := g.flipLocked(p, position)
	evs := []Event{g.emitLocked(EventCardFlipped, playerID, data)}
	return g.endTurnEventsLocked(playerID, evs), nil
}

// SkipFlip declines the pending post-discard flip and ends the turn.
func (g *Game) SkipFlip(playerID string) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireTurnLocked(playerID); err != nil {
		return nil, err
	}
	if !g.awaitingFlip {
		return nil, ErrNoFlipPending
	}
	g.awaitingFlip = false
	evs := []Event{g.emitLocked(EventFlipSkipped, playerID, nil)}
	return g.endTurnEventsLocked(playerID, evs), nil
}

// FlipAsAction spends the whole turn flipping one own face-down card
// instead of drawing. Gated on the flip_as_action option.
func (g *Game) FlipAsAction(playerID string, position int) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.opts.FlipAsAction {
		return nil, ErrOptionDisabled
	}
	if err := g.requireTurnLocked(playerID); err != nil {
		return nil, err
	}
	if g.drawnCard != nil {
		return nil, ErrCardAlreadyDrawn
	}
	if g.awaitingFlip {
		return nil, ErrFlipPending
	}
	p := g.playerLocked(playerID)
	if position < 0 || position >= len(p.Cards) {
		return nil, ErrInvalidPosition
	}
	if p.Cards[position].FaceUp {
		return nil, ErrPositionFaceUp
	}
	flip := g.flipLocked(p, position)
	evs := []Event{g.emitLocked(EventFlipAsAction, playerID, FlipAsActionData(flip))}
	return g.endTurnEventsLocked(playerID, evs), nil
}

// KnockEarly reveals all of the knocker's face-down cards at once, making
// them the finisher when there is none yet. Gated on the knock_early
// option and only valid before the final turn starts.
func (g *Game) KnockEarly(playerID string) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.opts.KnockEarly {
		return nil, ErrOptionDisabled
	}
	if g.phase != PhasePlaying {
		return nil, ErrWrongPhase
	}
	if g.currentPlayerLocked() == nil || g.currentPlayerLocked().ID != playerID {
		return nil, ErrNotYourTurn
	}
	if g.drawnCard != nil {
		return nil, ErrCardAlreadyDrawn
	}
	if g.awaitingFlip {
		return nil, ErrFlipPending
	}
	revealed := g.knockLocked(g.playerLocked(playerID))
	evs := []Event{g.emitLocked(EventKnockEarly, playerID, KnockEarlyData{Revealed: revealed})}
	return g.endTurnEventsLocked(playerID, evs), nil
}

// StartNextRound deals the next round, or ends the game when none remain.
// Host authorization is the caller's concern.
func (g *Game) StartNextRound(hostID string) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseRoundOver {
		return nil, ErrWrongPhase
	}
	if g.round >= g.totalRounds {
		data := g.gameEndLocked("completed")
		return []Event{g.emitLocked(EventGameEnded, hostID, data)}, nil
	}
	seed := g.nextDeckSeedLocked()
	data := g.startRoundLocked(seed)
	return []Event{g.emitLocked(EventRoundStarted, "", data)}, nil
}

// EndGame terminates the game early. Host authorization is the caller's
// concern.
func (g *Game) EndGame(hostID, reason string) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase == PhaseGameOver {
		return nil, ErrWrongPhase
	}
	if reason == "" {
		reason = "host_ended"
	}
	data := g.gameEndLocked(reason)
	return []Event{g.emitLocked(EventGameEnded, hostID, data)}, nil
}

// ----- locked helpers -----

func (g *Game) emitLocked(evType, playerID string, data any) Event {
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	g.lastSeq++
	return Event{
		Type:      evType,
		GameID:    g.cfg.ID,
		Sequence:  g.lastSeq,
		PlayerID:  playerID,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}
}

func (g *Game) setSequenceLocked(seq uint64) { g.lastSeq = seq }

func (g *Game) playerLocked(id string) *Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) playerIndexLocked(id string) int {
	for i, p := range g.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (g *Game) currentPlayerLocked() *Player {
	if len(g.players) == 0 || g.currentIdx < 0 || g.currentIdx >= len(g.players) {
		return nil
	}
	return g.players[g.currentIdx]
}

func (g *Game) requireTurnLocked(playerID string) error {
	if g.phase != PhasePlaying && g.phase != PhaseFinalTurn {
		return ErrWrongPhase
	}
	cur := g.currentPlayerLocked()
	if cur == nil || cur.ID != playerID {
		return ErrNotYourTurn
	}
	return nil
}

func (g *Game) addPlayerLocked(id, name string, isCPU bool, profileID string) {
	g.players = append(g.players, &Player{
		ID: id, Name: name, IsCPU: isCPU, ProfileID: profileID,
	})
}

// removePlayerLocked unseats id and reports whether the round should end
// now (too few players mid-round, or every remaining player already had
// their final turn).
func (g *Game) removePlayerLocked(id string) bool {
	idx := g.playerIndexLocked(id)
	if idx < 0 {
		return false
	}
	if g.drawnCard != nil && idx == g.currentIdx {
		c := *g.drawnCard
		c.FaceUp = true
		g.discard = append(g.discard, c)
		g.drawnCard = nil
		g.drawnFromDiscard = false
		g.awaitingFlip = false
	}
	g.players = append(g.players[:idx], g.players[idx+1:]...)
	delete(g.finalTurnDone, id)
	delete(g.initialFlipped, id)

	if len(g.players) == 0 {
		g.currentIdx = 0
		return false
	}
	if idx < g.currentIdx {
		g.currentIdx--
	}
	if g.currentIdx >= len(g.players) {
		g.currentIdx = 0
	}
	// A departed finisher keeps the final-turn countdown running; the
	// scoring modifiers skip an id that is no longer seated.

	midRound := g.phase == PhaseInitialFlip || g.phase == PhasePlaying || g.phase == PhaseFinalTurn
	if !midRound {
		return false
	}
	if len(g.players) < MinPlayers {
		return true
	}
	if g.phase == PhaseInitialFlip && g.allInitialFlippedLocked() {
		g.phase = PhasePlaying
	}
	if g.phase == PhaseFinalTurn {
		done := true
		for _, p := range g.players {
			if !g.finalTurnDone[p.ID] {
				done = false
				break
			}
		}
		if done {
			return true
		}
	}
	return false
}

func (g *Game) startLocked(params StartParams) {
	g.opts = params.Options
	g.numDecks = params.NumDecks
	g.totalRounds = params.NumRounds
	g.initialFlips = params.InitialFlips
}

func (g *Game) nextDeckSeedLocked() int64 {
	if g.round == 0 && g.cfg.Seed != 0 {
		return g.cfg.Seed
	}
	return g.rng.Int63()
}

// startRoundLocked deals the round from the given seed. Deterministic: the
// same seed yields the same hands and discard, which is what makes replay
// of round_started exact.
func (g *Game) startRoundLocked(seed int64) RoundStartedData {
	g.round++
	g.deck = card.NewDeck(g.numDecks, g.opts.JokerCount(g.numDecks), seed)
	hands := make(map[string][]card.Card, len(g.players))
	for _, p := range g.players {
		p.Cards = make([]card.Card, 0, HandSize)
		for i := 0; i < HandSize; i++ {
			c, _ := g.deck.Draw()
			p.Cards = append(p.Cards, c)
		}
		p.RoundScore = 0
		hands[p.ID] = append([]card.Card(nil), p.Cards...)
	}
	top, _ := g.deck.Draw()
	top.FaceUp = true
	g.discard = []card.Card{top}

	g.finisherID = ""
	g.finalTurnDone = map[string]bool{}
	g.initialFlipped = map[string]bool{}
	g.drawnCard = nil
	g.drawnFromDiscard = false
	g.awaitingFlip = false
	g.currentIdx = (g.round - 1) % len(g.players)
	if g.initialFlips == 0 {
		g.phase = PhasePlaying
	} else {
		g.phase = PhaseInitialFlip
	}
	return RoundStartedData{Round: g.round, DeckSeed: seed, Hands: hands, Discard: top}
}

func (g *Game) flipInitialLocked(p *Player, positions []int) []card.Card {
	revealed := make([]card.Card, 0, len(positions))
	for _, pos := range positions {
		p.Cards[pos].FaceUp = true
		revealed = append(revealed, p.Cards[pos])
	}
	g.initialFlipped[p.ID] = true
	if g.allInitialFlippedLocked() {
		g.phase = PhasePlaying
	}
	return revealed
}

func (g *Game) allInitialFlippedLocked() bool {
	for _, p := range g.players {
		if !g.initialFlipped[p.ID] {
			return false
		}
	}
	return true
}

func (g *Game) drawLocked(source string) {
	if source == SourceDiscard {
		c := g.discard[len(g.discard)-1]
		g.discard = g.discard[:len(g.discard)-1]
		g.drawnCard = &c
		g.drawnFromDiscard = true
		return
	}
	if g.deck.Len() == 0 {
		// Fold everything but the top of the discard back in.
		top := g.discard[len(g.discard)-1]
		rest := append([]card.Card(nil), g.discard[:len(g.discard)-1]...)
		g.discard = []card.Card{top}
		g.deck.Reshuffle(rest)
	}
	c, _ := g.deck.Draw()
	g.drawnCard = &c
	g.drawnFromDiscard = false
}

func (g *Game) swapLocked(p *Player, position int) CardSwappedData {
	newCard := *g.drawnCard
	newCard.FaceUp = true
	oldCard := p.Cards[position]
	oldCard.FaceUp = true
	p.Cards[position] = newCard
	g.discard = append(g.discard, oldCard)
	g.drawnCard = nil
	g.drawnFromDiscard = false
	return CardSwappedData{Position: position, NewCard: newCard, OldCard: oldCard}
}

func (g *Game) discardDrawnLocked(p *Player) CardDiscardedData {
	c := *g.drawnCard
	c.FaceUp = true
	g.discard = append(g.discard, c)
	g.drawnCard = nil
	g.drawnFromDiscard = false
	g.awaitingFlip = g.opts.FlipOnDiscard && p.faceDownCount() > 0
	return CardDiscardedData{Card: c, AwaitFlip: g.awaitingFlip}
}

func (g *Game) flipLocked(p *Player, position int) CardFlippedData {
	p.Cards[position].FaceUp = true
	g.awaitingFlip = false
	return CardFlippedData{Position: position, Card: p.Cards[position]}
}

func (g *Game) knockLocked(p *Player) []int {
	var revealed []int
	for i := range p.Cards {
		if !p.Cards[i].FaceUp {
			p.Cards[i].FaceUp = true
			revealed = append(revealed, i)
		}
	}
	return revealed
}

// endTurnLocked runs the end-of-turn check and reports whether the round
// ends. It never applies round-end scoring itself; round_ended carries
// that as its own event.
func (g *Game) endTurnLocked(playerID string) bool {
	p := g.playerLocked(playerID)
	if p != nil && p.allFaceUp() && g.finisherID == "" {
		g.finisherID = playerID
		g.phase = PhaseFinalTurn
		g.finalTurnDone[playerID] = true
	} else if g.phase == PhaseFinalTurn {
		g.finalTurnDone[playerID] = true
	}
	if len(g.players) > 0 {
		g.currentIdx = (g.currentIdx + 1) % len(g.players)
	}
	if g.phase == PhaseFinalTurn {
		next := g.currentPlayerLocked()
		if next != nil && g.finalTurnDone[next.ID] {
			return true
		}
	}
	return false
}

// endTurnEventsLocked appends round_ended to evs when the end-of-turn
// check closes the round.
func (g *Game) endTurnEventsLocked(playerID string, evs []Event) []Event {
	if g.endTurnLocked(playerID) {
		data := g.roundEndLocked()
		evs = append(evs, g.emitLocked(EventRoundEnded, "", data))
	}
	return evs
}

// roundEndLocked reveals every hand, scores the round, applies the global
// modifiers, credits winners, and moves to round_over.
func (g *Game) roundEndLocked() RoundEndedData {
	handScores := make(map[string]int, len(g.players))
	hands := make(map[string][]card.Card, len(g.players))
	for _, p := range g.players {
		for i := range p.Cards {
			p.Cards[i].FaceUp = true
		}
		handScores[p.ID] = ScoreHand(p.Cards, g.opts)
		hands[p.ID] = append([]card.Card(nil), p.Cards...)
	}
	roundScores := make(map[string]int, len(handScores))
	for id, s := range handScores {
		roundScores[id] = s
	}
	applyRoundModifiers(roundScores, g.finisherID, g.opts)
	winners := roundWinners(roundScores)
	won := map[string]bool{}
	for _, id := range winners {
		won[id] = true
	}
	totals := make(map[string]int, len(g.players))
	for _, p := range g.players {
		p.RoundScore = roundScores[p.ID]
		p.TotalScore += p.RoundScore
		if won[p.ID] {
			p.RoundsWon++
		}
		totals[p.ID] = p.TotalScore
	}
	g.phase = PhaseRoundOver
	g.drawnCard = nil
	g.drawnFromDiscard = false
	g.awaitingFlip = false
	return RoundEndedData{
		Round:       g.round,
		Hands:       hands,
		HandScores:  handScores,
		RoundScores: roundScores,
		Totals:      totals,
		Winners:     winners,
		FinisherID:  g.finisherID,
	}
}

func (g *Game) gameEndLocked(reason string) GameEndedData {
	totals := make(map[string]int, len(g.players))
	for _, p := range g.players {
		totals[p.ID] = p.TotalScore
	}
	g.phase = PhaseGameOver
	return GameEndedData{
		Reason:  reason,
		Totals:  totals,
		Winners: roundWinners(totals),
	}
}
