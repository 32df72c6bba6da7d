package codec

import "golf-lite/golf/npc"

// Inbound message parameter shapes. Every client message is a JSON
// object with a type tag plus these fields.

type Envelope struct {
	Type string `json:"type"`
}

type CreateRoomParams struct {
	Name string `json:"name"`
}

// JoinRoomParams optionally carries the caller's previous player id so a
// dropped connection can reclaim its seat.
type JoinRoomParams struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	PlayerID string `json:"player_id,omitempty"`
}

type StartGameParams struct {
	NumDecks     int             `json:"num_decks"`
	NumRounds    int             `json:"num_rounds"`
	InitialFlips int             `json:"initial_flips"`
	Options      map[string]bool `json:"options"`
}

type DrawParams struct {
	Source string `json:"source"`
}

type PositionParams struct {
	Position int `json:"position"`
}

type FlipInitialParams struct {
	Positions []int `json:"positions"`
}

type AddCPUParams struct {
	ProfileID string `json:"profile_id"`
}

type RemoveCPUParams struct {
	PlayerID string `json:"player_id"`
}

// Outbound messages.

type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func Error(msg string) ErrorMsg {
	return ErrorMsg{Type: "error", Message: msg}
}

type RoomCreatedMsg struct {
	Type     string `json:"type"`
	Code     string `json:"code"`
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

func RoomCreated(code, gameID, playerID string) RoomCreatedMsg {
	return RoomCreatedMsg{Type: "room_created", Code: code, GameID: gameID, PlayerID: playerID}
}

type RoomJoinedMsg struct {
	Type     string `json:"type"`
	Code     string `json:"code"`
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
	HostID   string `json:"host_id"`
}

func RoomJoined(code, gameID, playerID, hostID string) RoomJoinedMsg {
	return RoomJoinedMsg{Type: "room_joined", Code: code, GameID: gameID, PlayerID: playerID, HostID: hostID}
}

type PlayerJoinedMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	IsCPU    bool   `json:"is_cpu,omitempty"`
}

func PlayerJoined(playerID, name string, isCPU bool) PlayerJoinedMsg {
	return PlayerJoinedMsg{Type: "player_joined", PlayerID: playerID, Name: name, IsCPU: isCPU}
}

type PlayerLeftMsg struct {
	Type      string `json:"type"`
	PlayerID  string `json:"player_id"`
	NewHostID string `json:"new_host_id,omitempty"`
}

func PlayerLeft(playerID, newHostID string) PlayerLeftMsg {
	return PlayerLeftMsg{Type: "player_left", PlayerID: playerID, NewHostID: newHostID}
}

type CPUProfilesMsg struct {
	Type     string        `json:"type"`
	Profiles []npc.Profile `json:"profiles"`
}

func CPUProfiles(profiles []npc.Profile) CPUProfilesMsg {
	return CPUProfilesMsg{Type: "cpu_profiles", Profiles: profiles}
}

type GameStartedMsg struct {
	Type      string          `json:"type"`
	GameID    string          `json:"game_id"`
	NumRounds int             `json:"num_rounds"`
	Options   map[string]bool `json:"options,omitempty"`
}

func GameStarted(gameID string, numRounds int, options map[string]bool) GameStartedMsg {
	return GameStartedMsg{Type: "game_started", GameID: gameID, NumRounds: numRounds, Options: options}
}

type RoundStartedMsg struct {
	Type  string `json:"type"`
	Round int    `json:"round"`
}

func RoundStarted(round int) RoundStartedMsg {
	return RoundStartedMsg{Type: "round_started", Round: round}
}

// CardDrawn goes only to the drawing player; everyone else learns about
// the draw from the game_state broadcast, which hides deck draws.
type CardDrawnMsg struct {
	Type   string    `json:"type"`
	Source string    `json:"source"`
	Card   *CardView `json:"card"`
}

func CardDrawn(source string, card *CardView) CardDrawnMsg {
	return CardDrawnMsg{Type: "card_drawn", Source: source, Card: card}
}

type CanFlipMsg struct {
	Type string `json:"type"`
}

func CanFlip() CanFlipMsg { return CanFlipMsg{Type: "can_flip"} }

type YourTurnMsg struct {
	Type string `json:"type"`
}

func YourTurn() YourTurnMsg { return YourTurnMsg{Type: "your_turn"} }

type RoundOverMsg struct {
	Type        string         `json:"type"`
	Round       int            `json:"round"`
	HandScores  map[string]int `json:"hand_scores"`
	RoundScores map[string]int `json:"round_scores"`
	Totals      map[string]int `json:"totals"`
	Winners     []string       `json:"winners"`
	FinisherID  string         `json:"finisher_id,omitempty"`
}

type GameOverMsg struct {
	Type    string         `json:"type"`
	Totals  map[string]int `json:"totals"`
	Winners []string       `json:"winners"`
}

type GameEndedMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func GameEnded(reason string) GameEndedMsg {
	return GameEndedMsg{Type: "game_ended", Reason: reason}
}
