package golf

import "errors"

var (
	ErrNotYourTurn      = errors.New("not your turn")
	ErrWrongPhase       = errors.New("action not valid in this phase")
	ErrNoDrawnCard      = errors.New("no drawn card")
	ErrCardAlreadyDrawn = errors.New("a card is already drawn")
	ErrMustSwapDiscard  = errors.New("card taken from discard must be swapped")
	ErrEmptyDiscard     = errors.New("discard pile is empty")
	ErrPositionFaceUp   = errors.New("position is already face up")
	ErrInvalidPosition  = errors.New("invalid card position")
	ErrGameFull         = errors.New("game is full")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrDuplicatePlayer  = errors.New("player already seated")
	ErrOptionDisabled   = errors.New("option not enabled for this game")
	ErrFlipPending      = errors.New("a flip decision is pending")
	ErrNoFlipPending    = errors.New("no flip decision is pending")
	ErrAlreadyFlipped   = errors.New("initial flips already done")
)

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }
