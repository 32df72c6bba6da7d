package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golf-lite/golf"
	"golf-lite/internal/codec"
)

const opTimeout = 5 * time.Second

func (c *Connection) bind(raw []byte, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		c.SendJSON(codec.Error("malformed parameters"))
		return false
	}
	return true
}

// dispatch routes one inbound message. Every engine or room error goes
// straight back to the sender as an error message.
func (c *Connection) dispatch(raw []byte) {
	var env codec.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.SendJSON(codec.Error("malformed message"))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	mgr := c.gw.mgr
	var err error
	switch env.Type {
	case "create_room":
		var p codec.CreateRoomParams
		if !c.bind(raw, &p) {
			return
		}
		if p.Name == "" {
			p.Name = "Player"
		}
		_, _, err = mgr.CreateRoom(ctx, c.playerID, p.Name, c)

	case "join_room":
		var p codec.JoinRoomParams
		if !c.bind(raw, &p) {
			return
		}
		if p.Name == "" {
			p.Name = "Player"
		}
		if p.PlayerID != "" {
			c.playerID = p.PlayerID
		}
		err = mgr.JoinRoom(ctx, c.playerID, p.Name, strings.ToUpper(strings.TrimSpace(p.Code)), c)

	case "leave_room", "leave_game":
		err = mgr.Leave(ctx, c.playerID)

	case "get_cpu_profiles":
		c.SendJSON(codec.CPUProfiles(mgr.Profiles().Available()))
		return

	case "add_cpu":
		var p codec.AddCPUParams
		if !c.bind(raw, &p) {
			return
		}
		err = mgr.AddCPU(ctx, c.playerID, p.ProfileID)

	case "remove_cpu":
		var p codec.RemoveCPUParams
		if !c.bind(raw, &p) {
			return
		}
		err = mgr.RemoveCPU(ctx, c.playerID, p.PlayerID)

	case "start_game":
		var p codec.StartGameParams
		if !c.bind(raw, &p) {
			return
		}
		err = mgr.StartGame(ctx, c.playerID, golf.StartParams{
			NumDecks:     p.NumDecks,
			NumRounds:    p.NumRounds,
			InitialFlips: p.InitialFlips,
			Options:      golf.OptionsFromFlags(p.Options),
		})

	case "flip_initial":
		var p codec.FlipInitialParams
		if !c.bind(raw, &p) {
			return
		}
		err = mgr.FlipInitial(ctx, c.playerID, p.Positions)

	case "draw":
		var p codec.DrawParams
		if !c.bind(raw, &p) {
			return
		}
		err = mgr.Draw(ctx, c.playerID, p.Source)

	case "swap":
		var p codec.PositionParams
		if !c.bind(raw, &p) {
			return
		}
		err = mgr.Swap(ctx, c.playerID, p.Position)

	case "discard":
		err = mgr.Discard(ctx, c.playerID)

	case "flip_card":
		var p codec.PositionParams
		if !c.bind(raw, &p) {
			return
		}
		err = mgr.FlipCard(ctx, c.playerID, p.Position)

	case "skip_flip":
		err = mgr.SkipFlip(ctx, c.playerID)

	case "flip_as_action":
		var p codec.PositionParams
		if !c.bind(raw, &p) {
			return
		}
		err = mgr.FlipAsAction(ctx, c.playerID, p.Position)

	case "knock_early":
		err = mgr.KnockEarly(ctx, c.playerID)

	case "cancel_draw":
		err = mgr.CancelDraw(ctx, c.playerID)

	case "next_round":
		err = mgr.NextRound(ctx, c.playerID)

	case "end_game":
		err = mgr.EndGame(ctx, c.playerID)

	default:
		c.SendJSON(codec.Error("unknown message type: " + env.Type))
		return
	}

	if err != nil {
		c.SendJSON(codec.Error(err.Error()))
	}
}
