package session

import (
	"ctchen222/tictactoe-match/internal/events"
	"ctchen222/tictactoe-match/internal/game"
	"ctchen222/tictactoe-match/internal/match"
	"ctchen222/tictactoe-match/internal/player"
	"ctchen222/tictactoe-match/pkg/proto"
	"fmt"
)

func (s *Session) viewLocked() proto.SessionView {
	state := s.match.State()
	v := proto.SessionView{
		ID:         s.ID,
		Mode:       string(s.cfg.Mode),
		Difficulty: string(s.cfg.Difficulty),
		Board:      state.Board,
		Next:       state.Mover,
		Status:     string(state.Status),
		Phase:      string(state.Phase),
		Round:      state.Round,
		RoundLimit: state.RoundLimit,
		ScoreX:     state.ScoreX,
		ScoreO:     state.ScoreO,
		PlayerX:    playerView(s.players[game.PlayerX]),
		PlayerO:    playerView(s.players[game.PlayerO]),
		BotPending: s.pending,
	}

	if state.Outcome.Kind == game.Won {
		line := state.Outcome.Line
		v.Winner = state.Outcome.Winner
		v.WinningLine = line[:]
	}

	switch state.Phase {
	case match.AwaitingMove:
		v.TurnMessage = fmt.Sprintf("%s's Turn", s.nameLocked(state.Mover))
	case match.RoundDecided:
		v.RoundMessage = s.roundMessageLocked(state.Outcome)
	case match.MatchDecided:
		v.RoundMessage = s.roundMessageLocked(state.Outcome)
		if state.Result != nil {
			v.MatchWinner = state.Result.Winner
			v.MatchTie = state.Result.Tie
			v.MatchMessage = s.matchMessageLocked(*state.Result)
		}
	}
	return v
}

func playerView(p *player.Player) proto.PlayerView {
	if p == nil {
		return proto.PlayerView{}
	}
	return proto.PlayerView{ID: p.ID, Name: p.Name, Mark: p.Mark, IsBot: p.IsBot}
}

func (s *Session) nameLocked(mark game.PlayerMark) string {
	if p, ok := s.players[mark]; ok {
		return p.Name
	}
	return player.DisplayName("", mark)
}

func (s *Session) roundMessageLocked(outcome game.Outcome) string {
	switch outcome.Kind {
	case game.Won:
		return fmt.Sprintf("%s wins this round!", s.nameLocked(outcome.Winner))
	case game.Draw:
		return "It's a draw!"
	default:
		return ""
	}
}

func (s *Session) matchMessageLocked(result match.Result) string {
	if result.Tie {
		return "It's a Tie Match!"
	}
	return fmt.Sprintf("%s Wins the Match!", s.nameLocked(result.Winner))
}

func (s *Session) roundDecidedPayloadLocked(outcome game.Outcome) events.RoundDecidedPayload {
	payload := events.RoundDecidedPayload{
		SessionID: s.ID,
		Round:     s.match.Round(),
		Message:   s.roundMessageLocked(outcome),
	}
	if outcome.Kind == game.Won {
		line := outcome.Line
		payload.Winner = outcome.Winner
		payload.Line = line[:]
	}
	return payload
}

func (s *Session) matchDecidedPayloadLocked(result match.Result) events.MatchDecidedPayload {
	return events.MatchDecidedPayload{
		SessionID: s.ID,
		Winner:    result.Winner,
		Tie:       result.Tie,
		ScoreX:    s.match.Score(game.PlayerX),
		ScoreO:    s.match.Score(game.PlayerO),
		Message:   s.matchMessageLocked(result),
	}
}
