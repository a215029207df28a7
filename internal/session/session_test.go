package session

import (
	"context"
	"ctchen222/tictactoe-match/internal/bot"
	"ctchen222/tictactoe-match/internal/events"
	"ctchen222/tictactoe-match/internal/game"
	"ctchen222/tictactoe-match/internal/match"
	"ctchen222/tictactoe-match/pkg/proto"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualScheduler only runs callbacks when the test fires them.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{s: m, delay: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fire runs every timer that is neither stopped nor already fired.
func (m *manualScheduler) fire() int {
	m.mu.Lock()
	var due []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	m.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

func (m *manualScheduler) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (m *manualScheduler) last() *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timers[len(m.timers)-1]
}

// scriptedChooser returns its moves in order.
type scriptedChooser struct {
	moves []int
}

func (c *scriptedChooser) ChooseMove(board game.Board, _ bot.Difficulty, _, _ game.PlayerMark) (int, error) {
	if board.IsBoardFull() {
		return -1, game.ErrNoLegalMove
	}
	move := c.moves[0]
	c.moves = c.moves[1:]
	return move, nil
}

func newTestSession(t *testing.T, cfg Config, opts ...Option) (*Session, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	s, err := New(context.Background(), cfg, append([]Option{WithScheduler(sched)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, sched
}

func play(t *testing.T, s *Session, moves ...int) proto.SessionView {
	t.Helper()
	var view proto.SessionView
	for _, index := range moves {
		var err error
		view, err = s.RequestMove(context.Background(), index)
		require.NoError(t, err, "move %d", index)
	}
	return view
}

func TestNew_Defaults(t *testing.T) {
	s, sched := newTestSession(t, Config{})

	cfg := s.Config()
	assert.Equal(t, ModeComputer, cfg.Mode)
	assert.Equal(t, bot.Hard, cfg.Difficulty)
	assert.Equal(t, game.PlayerO, cfg.BotMark)
	assert.Equal(t, match.DefaultRoundLimit, cfg.RoundLimit)
	assert.Equal(t, DefaultBotDelay, cfg.BotDelay)

	view := s.View()
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "Player X", view.PlayerX.Name)
	assert.False(t, view.PlayerX.IsBot)
	assert.Equal(t, "Computer", view.PlayerO.Name)
	assert.True(t, view.PlayerO.IsBot)
	assert.Equal(t, game.PlayerX, view.Next)
	assert.Equal(t, "Player X's Turn", view.TurnMessage)
	assert.Equal(t, 1, view.Round)
	assert.Equal(t, 10, view.RoundLimit)
	assert.False(t, view.BotPending)
	assert.Zero(t, sched.pending())
}

func TestNew_Names(t *testing.T) {
	t.Run("Friend mode keeps both names", func(t *testing.T) {
		s, _ := newTestSession(t, Config{Mode: ModeFriend, PlayerXName: "  Ada ", PlayerOName: "Linus"})

		view := s.View()
		assert.Equal(t, "Ada", view.PlayerX.Name)
		assert.Equal(t, "Linus", view.PlayerO.Name)
		assert.Empty(t, view.Difficulty)
	})

	t.Run("Blank names keep the defaults", func(t *testing.T) {
		s, _ := newTestSession(t, Config{Mode: ModeFriend, PlayerXName: "   "})

		view := s.View()
		assert.Equal(t, "Player X", view.PlayerX.Name)
		assert.Equal(t, "Player O", view.PlayerO.Name)
	})

	t.Run("Computer seat ignores the configured name", func(t *testing.T) {
		s, _ := newTestSession(t, Config{Mode: ModeComputer, PlayerXName: "Ada", PlayerOName: "Linus", PlayerXID: "user-1"})

		view := s.View()
		assert.Equal(t, "Ada", view.PlayerX.Name)
		assert.Equal(t, "user-1", view.PlayerX.ID)
		assert.Equal(t, "Computer", view.PlayerO.Name)
	})
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "unknown mode", cfg: Config{Mode: "online"}},
		{name: "unknown difficulty", cfg: Config{Difficulty: "impossible"}},
		{name: "negative round limit", cfg: Config{RoundLimit: -1}},
		{name: "bad bot mark", cfg: Config{BotMark: "Z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg, WithScheduler(&manualScheduler{}))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSession_ComputerRepliesAfterDelay(t *testing.T) {
	s, sched := newTestSession(t, Config{Mode: ModeComputer, Difficulty: bot.Hard, BotDelay: 200 * time.Millisecond})

	view := play(t, s, 4)

	assert.True(t, view.BotPending)
	assert.Equal(t, game.PlayerO, view.Next)
	require.Equal(t, 1, sched.pending())
	assert.Equal(t, 200*time.Millisecond, sched.last().delay)

	require.Equal(t, 1, sched.fire())

	view = s.View()
	assert.False(t, view.BotPending)
	assert.Equal(t, game.PlayerO, view.Board[0], "minimax answers the center with the first corner")
	assert.Equal(t, game.PlayerX, view.Next)
}

func TestSession_HumanLockedWhileComputerToMove(t *testing.T) {
	s, sched := newTestSession(t, Config{Mode: ModeComputer})
	play(t, s, 4)
	before := s.View()

	_, err := s.RequestMove(context.Background(), 0)

	assert.ErrorIs(t, err, game.ErrMoveLocked)
	assert.ErrorIs(t, err, game.ErrInvalidMove)
	assert.Equal(t, before.Board, s.View().Board)
	assert.Equal(t, 1, sched.pending(), "pending reply is untouched")
}

func TestSession_RequestAutomatedMove(t *testing.T) {
	t.Run("Applies immediately and cancels the scheduled move", func(t *testing.T) {
		s, sched := newTestSession(t, Config{Mode: ModeComputer})
		play(t, s, 4)
		scheduled := sched.last()

		view, err := s.RequestAutomatedMove(context.Background())

		require.NoError(t, err)
		assert.Equal(t, game.PlayerO, view.Board[0])
		assert.False(t, view.BotPending)
		assert.True(t, scheduled.stopped)
		assert.Zero(t, sched.fire())
	})

	t.Run("Errors", func(t *testing.T) {
		friend, _ := newTestSession(t, Config{Mode: ModeFriend})
		_, err := friend.RequestAutomatedMove(context.Background())
		assert.ErrorIs(t, err, ErrNoOpponent)

		s, _ := newTestSession(t, Config{Mode: ModeComputer})
		_, err = s.RequestAutomatedMove(context.Background())
		assert.ErrorIs(t, err, ErrNotBotTurn)
	})

	t.Run("Decided round has nothing to play", func(t *testing.T) {
		s, _ := newTestSession(t, Config{Mode: ModeComputer, BotMark: game.PlayerX}, WithChooser(&scriptedChooser{moves: []int{0, 1, 2}}))
		require.NoError(t, noErr(s.RequestAutomatedMove(context.Background())))
		play(t, s, 3)
		require.NoError(t, noErr(s.RequestAutomatedMove(context.Background())))
		play(t, s, 4)
		view, err := s.RequestAutomatedMove(context.Background())
		require.NoError(t, err)
		require.Equal(t, string(match.WonByX), view.Status)

		_, err = s.RequestAutomatedMove(context.Background())

		assert.ErrorIs(t, err, game.ErrGameNotActive)
	})
}

func noErr(_ proto.SessionView, err error) error { return err }

func TestSession_ComputerOpensAsX(t *testing.T) {
	s, sched := newTestSession(t, Config{Mode: ModeComputer, BotMark: game.PlayerX, Difficulty: bot.Hard})

	view := s.View()
	assert.True(t, view.BotPending)
	assert.True(t, view.PlayerX.IsBot)
	assert.Equal(t, "Player O", view.PlayerO.Name)

	_, err := s.RequestMove(context.Background(), 4)
	assert.ErrorIs(t, err, game.ErrMoveLocked)

	require.Equal(t, 1, sched.fire())
	assert.Equal(t, game.PlayerX, s.View().Board[0])
	assert.Equal(t, game.PlayerO, s.View().Next)
}

func TestSession_ComputerWinsRound(t *testing.T) {
	s, sched := newTestSession(t, Config{Mode: ModeComputer, RoundLimit: 3}, WithChooser(&scriptedChooser{moves: []int{0, 1, 2}}))

	for _, index := range []int{3, 6, 8} {
		play(t, s, index)
		require.Equal(t, 1, sched.fire())
	}

	view := s.View()
	assert.Equal(t, string(match.WonByO), view.Status)
	assert.Equal(t, string(match.RoundDecided), view.Phase)
	assert.Equal(t, game.PlayerO, view.Winner)
	assert.Equal(t, []int{0, 1, 2}, view.WinningLine)
	assert.Equal(t, 1, view.ScoreO)
	assert.Equal(t, "Computer wins this round!", view.RoundMessage)
	assert.Empty(t, view.TurnMessage)

	_, err := s.RequestMove(context.Background(), 4)
	assert.ErrorIs(t, err, game.ErrGameNotActive)
}

func TestSession_PendingMoveCancelled(t *testing.T) {
	t.Run("Restart stops the timer", func(t *testing.T) {
		s, sched := newTestSession(t, Config{Mode: ModeComputer})
		play(t, s, 4)
		scheduled := sched.last()

		view, err := s.RestartMatch(context.Background())

		require.NoError(t, err)
		assert.True(t, scheduled.stopped)
		assert.False(t, view.BotPending)
		assert.Equal(t, game.Board{}, view.Board)
	})

	t.Run("Stale callback after restart does nothing", func(t *testing.T) {
		s, sched := newTestSession(t, Config{Mode: ModeComputer})
		play(t, s, 4)
		stale := sched.last().f
		_, err := s.RestartMatch(context.Background())
		require.NoError(t, err)

		stale()

		assert.Equal(t, game.Board{}, s.View().Board)
		assert.Equal(t, game.PlayerX, s.View().Next)
	})

	t.Run("Stale callback after close does nothing", func(t *testing.T) {
		s, sched := newTestSession(t, Config{Mode: ModeComputer})
		play(t, s, 4)
		stale := sched.last().f

		s.Close()
		stale()

		assert.Equal(t, game.None, s.View().Board[0])
	})
}

func TestSession_FriendMatch(t *testing.T) {
	s, sched := newTestSession(t, Config{Mode: ModeFriend, RoundLimit: 1, PlayerXName: "Ada"})

	view := play(t, s, 0, 3, 1, 4, 2)

	assert.Zero(t, sched.pending())
	assert.Equal(t, string(match.RoundDecided), view.Phase)
	assert.Equal(t, "Ada wins this round!", view.RoundMessage)

	view, err := s.StartRound(context.Background())

	require.NoError(t, err)
	assert.Equal(t, string(match.MatchDecided), view.Phase)
	assert.Equal(t, game.PlayerX, view.MatchWinner)
	assert.False(t, view.MatchTie)
	assert.Equal(t, "Ada Wins the Match!", view.MatchMessage)

	_, err = s.StartRound(context.Background())
	assert.ErrorIs(t, err, match.ErrInvalidTransition)

	view, err = s.RestartMatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(match.AwaitingMove), view.Phase)
	assert.Zero(t, view.ScoreX)
	assert.Empty(t, view.MatchMessage)
}

func TestSession_TieMatchAndDraws(t *testing.T) {
	s, _ := newTestSession(t, Config{Mode: ModeFriend, RoundLimit: 1})

	view := play(t, s, 0, 1, 2, 4, 3, 5, 7, 6, 8)
	assert.Equal(t, "It's a draw!", view.RoundMessage)
	assert.Empty(t, view.WinningLine)

	view, err := s.StartRound(context.Background())
	require.NoError(t, err)
	assert.True(t, view.MatchTie)
	assert.Equal(t, "It's a Tie Match!", view.MatchMessage)
}

func TestSession_StartRoundSchedulesOpeningComputer(t *testing.T) {
	s, sched := newTestSession(t, Config{Mode: ModeComputer, BotMark: game.PlayerX, RoundLimit: 2},
		WithChooser(&scriptedChooser{moves: []int{0, 1, 2, 4}}))
	for _, index := range []int{3, 5} {
		require.Equal(t, 1, sched.fire())
		play(t, s, index)
	}
	require.Equal(t, 1, sched.fire())
	require.Equal(t, string(match.RoundDecided), s.View().Phase)
	require.Zero(t, sched.pending())

	view, err := s.StartRound(context.Background())

	require.NoError(t, err)
	assert.True(t, view.BotPending)
	require.Equal(t, 1, sched.fire())
	assert.Equal(t, game.PlayerX, s.View().Board[4])
}

func TestSession_Subscribe(t *testing.T) {
	t.Run("Receives round and state events in order", func(t *testing.T) {
		s, _ := newTestSession(t, Config{Mode: ModeFriend})
		ch, unsubscribe := s.Subscribe()
		defer unsubscribe()

		current := <-ch
		require.Equal(t, events.TypeStateUpdated, current.Type)
		var initial proto.SessionView
		require.NoError(t, json.Unmarshal(current.Payload, &initial))
		assert.Equal(t, s.ID, initial.ID)
		assert.Equal(t, game.Board{}, initial.Board)

		play(t, s, 0, 3, 1, 4)
		for range 4 {
			event := <-ch
			assert.Equal(t, events.TypeStateUpdated, event.Type)
		}

		play(t, s, 2)

		event := <-ch
		require.Equal(t, events.TypeRoundDecided, event.Type)
		var round events.RoundDecidedPayload
		require.NoError(t, json.Unmarshal(event.Payload, &round))
		assert.Equal(t, game.PlayerX, round.Winner)
		assert.Equal(t, []int{0, 1, 2}, round.Line)
		assert.Equal(t, "Player X wins this round!", round.Message)

		event = <-ch
		require.Equal(t, events.TypeStateUpdated, event.Type)
		var view proto.SessionView
		require.NoError(t, json.Unmarshal(event.Payload, &view))
		assert.Equal(t, 1, view.ScoreX)
	})

	t.Run("Close ends subscriptions", func(t *testing.T) {
		s, _ := newTestSession(t, Config{Mode: ModeFriend})
		ch, _ := s.Subscribe()
		<-ch

		s.Close()

		event, ok := <-ch
		require.True(t, ok)
		assert.Equal(t, events.TypeSessionClosed, event.Type)
		_, ok = <-ch
		assert.False(t, ok)

		_, err := s.RequestMove(context.Background(), 0)
		assert.ErrorIs(t, err, ErrClosed)

		late, _ := s.Subscribe()
		_, ok = <-late
		assert.False(t, ok)
	})

	t.Run("Slow subscriber is dropped", func(t *testing.T) {
		s, _ := newTestSession(t, Config{Mode: ModeFriend})
		ch, _ := s.Subscribe()

		for range subscriberBuffer + 4 {
			_, err := s.RestartMatch(context.Background())
			require.NoError(t, err)
		}

		received := 0
		for range ch {
			received++
		}
		assert.Equal(t, subscriberBuffer, received)
	})
}

func TestRestore(t *testing.T) {
	t.Run("Round trip through Snapshot", func(t *testing.T) {
		s, _ := newTestSession(t, Config{Mode: ModeFriend, PlayerXName: "Ada", RoundLimit: 3})
		play(t, s, 4, 0)

		restored, err := Restore(context.Background(), s.Snapshot(), WithScheduler(&manualScheduler{}))

		require.NoError(t, err)
		assert.Equal(t, s.View(), restored.View())
	})

	t.Run("Computer to move is rescheduled", func(t *testing.T) {
		s, _ := newTestSession(t, Config{Mode: ModeComputer})
		play(t, s, 4)
		sched := &manualScheduler{}

		restored, err := Restore(context.Background(), s.Snapshot(), WithScheduler(sched))

		require.NoError(t, err)
		t.Cleanup(restored.Close)
		assert.True(t, restored.View().BotPending)
		require.Equal(t, 1, sched.fire())
		assert.Equal(t, game.PlayerO, restored.View().Board[0])
	})

	t.Run("Rejects broken snapshots", func(t *testing.T) {
		s, _ := newTestSession(t, Config{Mode: ModeFriend})

		noID := s.Snapshot()
		noID.ID = ""
		_, err := Restore(context.Background(), noID)
		assert.ErrorIs(t, err, match.ErrInvalidState)

		sameSeat := s.Snapshot()
		sameSeat.PlayerO = sameSeat.PlayerX
		_, err = Restore(context.Background(), sameSeat)
		assert.ErrorIs(t, err, match.ErrInvalidState)

		wrongLimit := s.Snapshot()
		wrongLimit.Config.RoundLimit = 4
		_, err = Restore(context.Background(), wrongLimit)
		assert.ErrorIs(t, err, match.ErrInvalidState)
	})
}
