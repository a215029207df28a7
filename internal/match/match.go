package match

import (
	"ctchen222/tictactoe-match/internal/game"
	"errors"
	"fmt"
)

// DefaultRoundLimit is the number of rounds in a match unless configured.
const DefaultRoundLimit = 10

// Status is the state of the current round.
type Status string

const (
	Active Status = "active"
	WonByX Status = "won_x"
	WonByO Status = "won_o"
	Drawn  Status = "draw"
)

// Phase is the position of the match state machine.
type Phase string

const (
	AwaitingMove Phase = "awaiting_move"
	RoundDecided Phase = "round_decided"
	MatchDecided Phase = "match_decided"
)

var (
	ErrInvalidRoundLimit = errors.New("round limit must be at least 1")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidState      = errors.New("invalid match state")
)

// Result is the final result of a decided match.
type Result struct {
	Winner game.PlayerMark `json:"winner,omitempty"`
	Tie    bool            `json:"tie"`
}

// State is a plain copy of a match, used for rendering and persistence.
type State struct {
	Board      game.Board      `json:"board"`
	Mover      game.PlayerMark `json:"mover"`
	Status     Status          `json:"status"`
	Phase      Phase           `json:"phase"`
	Outcome    game.Outcome    `json:"outcome"`
	Round      int             `json:"round"`
	RoundLimit int             `json:"round_limit"`
	ScoreX     int             `json:"score_x"`
	ScoreO     int             `json:"score_o"`
	Result     *Result         `json:"result,omitempty"`
}

// Match tracks one match: the board of the current round, the mover, the
// round counter and the cumulative score. It is not safe for concurrent use;
// callers own one Match per game and serialize access.
type Match struct {
	board      game.Board
	mover      game.PlayerMark
	status     Status
	phase      Phase
	outcome    game.Outcome
	round      int
	roundLimit int
	scores     map[game.PlayerMark]int
	result     *Result
}

// New creates a match at round 1 with zero scores and X to move.
func New(roundLimit int) (*Match, error) {
	if roundLimit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRoundLimit, roundLimit)
	}
	m := &Match{roundLimit: roundLimit}
	m.reset()
	return m, nil
}

func (m *Match) reset() {
	m.board.Clear()
	m.mover = game.FirstMover
	m.status = Active
	m.phase = AwaitingMove
	m.outcome = game.Outcome{}
	m.round = 1
	m.scores = map[game.PlayerMark]int{game.PlayerX: 0, game.PlayerO: 0}
	m.result = nil
}

// Place marks index for the current mover and evaluates the board. On error the
// match is unchanged.
func (m *Match) Place(index int) (game.Outcome, error) {
	if m.status != Active {
		return m.outcome, game.ErrGameNotActive
	}

	if err := m.board.Place(index, m.mover); err != nil {
		return m.outcome, err
	}

	outcome := game.Evaluate(m.board)
	switch outcome.Kind {
	case game.InProgress:
		m.mover = m.mover.Opponent()
	case game.Won:
		m.scores[outcome.Winner]++
		m.status = statusFor(outcome)
		m.phase = RoundDecided
	case game.Draw:
		m.status = Drawn
		m.phase = RoundDecided
	}
	m.outcome = outcome

	return outcome, nil
}

// AdvanceRound moves on from a decided round: either the next round starts
// with a cleared board and X to move, or the match is decided.
func (m *Match) AdvanceRound() error {
	if m.phase != RoundDecided {
		return fmt.Errorf("%w: cannot advance round while %s", ErrInvalidTransition, m.phase)
	}

	m.round++
	if m.round > m.roundLimit {
		m.phase = MatchDecided
		m.result = m.decide()
		return nil
	}

	m.board.Clear()
	m.mover = game.FirstMover
	m.status = Active
	m.phase = AwaitingMove
	m.outcome = game.Outcome{}
	return nil
}

// Restart resets the round counter, scores and board. It is accepted in any
// phase.
func (m *Match) Restart() {
	m.reset()
}

func (m *Match) decide() *Result {
	x, o := m.scores[game.PlayerX], m.scores[game.PlayerO]
	switch {
	case x > o:
		return &Result{Winner: game.PlayerX}
	case o > x:
		return &Result{Winner: game.PlayerO}
	default:
		return &Result{Tie: true}
	}
}

func statusFor(outcome game.Outcome) Status {
	switch {
	case outcome.Kind == game.Draw:
		return Drawn
	case outcome.Kind == game.Won && outcome.Winner == game.PlayerX:
		return WonByX
	case outcome.Kind == game.Won && outcome.Winner == game.PlayerO:
		return WonByO
	default:
		return Active
	}
}

// Board returns a snapshot of the current board.
func (m *Match) Board() game.Board { return m.board.Snapshot() }

// Mover returns the mark that places next.
func (m *Match) Mover() game.PlayerMark { return m.mover }

func (m *Match) Status() Status { return m.status }

func (m *Match) Phase() Phase { return m.phase }

// Outcome returns the evaluation after the last placement of this round.
func (m *Match) Outcome() game.Outcome { return m.outcome }

func (m *Match) Round() int { return m.round }

func (m *Match) RoundLimit() int { return m.roundLimit }

// Score returns the cumulative score of mark.
func (m *Match) Score(mark game.PlayerMark) int { return m.scores[mark] }

// Result returns the match result once the phase is MatchDecided.
func (m *Match) Result() (Result, bool) {
	if m.result == nil {
		return Result{}, false
	}
	return *m.result, true
}

// State returns a copy of the whole match.
func (m *Match) State() State {
	s := State{
		Board:      m.board.Snapshot(),
		Mover:      m.mover,
		Status:     m.status,
		Phase:      m.phase,
		Outcome:    m.outcome,
		Round:      m.round,
		RoundLimit: m.roundLimit,
		ScoreX:     m.scores[game.PlayerX],
		ScoreO:     m.scores[game.PlayerO],
	}
	if m.result != nil {
		r := *m.result
		s.Result = &r
	}
	return s
}

// Restore rebuilds a match from a State, checking that it is one Place,
// AdvanceRound and Restart could have produced.
func Restore(s State) (*Match, error) {
	if s.RoundLimit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRoundLimit, s.RoundLimit)
	}
	if s.Round < 1 || s.Round > s.RoundLimit+1 || s.ScoreX < 0 || s.ScoreO < 0 {
		return nil, fmt.Errorf("%w: round %d of %d, score %d-%d", ErrInvalidState, s.Round, s.RoundLimit, s.ScoreX, s.ScoreO)
	}
	if !s.Mover.Valid() {
		return nil, fmt.Errorf("%w: mover %q", ErrInvalidState, s.Mover)
	}

	// X opens every round, so X has either as many marks as O or one more.
	x, o := s.Board.Count(game.PlayerX), s.Board.Count(game.PlayerO)
	if x != o && x != o+1 {
		return nil, fmt.Errorf("%w: %d X marks against %d O marks", ErrInvalidState, x, o)
	}

	outcome := game.Evaluate(s.Board)
	// Rounds whose result is already counted in the score.
	finished := s.Round - 1
	switch s.Phase {
	case AwaitingMove:
		if outcome.Decided() || s.Status != Active || s.Round > s.RoundLimit {
			return nil, fmt.Errorf("%w: awaiting a move on a decided board", ErrInvalidState)
		}
		next := game.PlayerX
		if x != o {
			next = game.PlayerO
		}
		if s.Mover != next {
			return nil, fmt.Errorf("%w: %s to move with %d X and %d O marks", ErrInvalidState, s.Mover, x, o)
		}
	case RoundDecided:
		if s.Round > s.RoundLimit {
			return nil, fmt.Errorf("%w: round %d decided past the limit of %d", ErrInvalidState, s.Round, s.RoundLimit)
		}
		if !outcome.Decided() || statusFor(outcome) != s.Status {
			return nil, fmt.Errorf("%w: round marked decided but board is %s", ErrInvalidState, outcome.Kind)
		}
		finished = s.Round
	case MatchDecided:
		if s.Round != s.RoundLimit+1 {
			return nil, fmt.Errorf("%w: match decided at round %d of %d", ErrInvalidState, s.Round, s.RoundLimit)
		}
		if s.Status == Active || !outcome.Decided() || statusFor(outcome) != s.Status {
			return nil, fmt.Errorf("%w: match decided but last round is %s", ErrInvalidState, s.Status)
		}
	default:
		return nil, fmt.Errorf("%w: phase %q", ErrInvalidState, s.Phase)
	}

	if s.Phase != AwaitingMove && outcome.Kind == game.Won {
		if s.Mover != outcome.Winner {
			return nil, fmt.Errorf("%w: %s won but %s made the last move", ErrInvalidState, outcome.Winner, s.Mover)
		}
		if (outcome.Winner == game.PlayerX && s.ScoreX < 1) || (outcome.Winner == game.PlayerO && s.ScoreO < 1) {
			return nil, fmt.Errorf("%w: %s won the round but has no score", ErrInvalidState, outcome.Winner)
		}
	}
	if s.ScoreX+s.ScoreO > finished {
		return nil, fmt.Errorf("%w: score %d-%d after %d finished rounds", ErrInvalidState, s.ScoreX, s.ScoreO, finished)
	}

	m := &Match{
		board:      s.Board,
		mover:      s.Mover,
		status:     s.Status,
		phase:      s.Phase,
		outcome:    outcome,
		round:      s.Round,
		roundLimit: s.RoundLimit,
		scores:     map[game.PlayerMark]int{game.PlayerX: s.ScoreX, game.PlayerO: s.ScoreO},
	}
	if s.Phase == MatchDecided {
		m.result = m.decide()
	}
	return m, nil
}
