package session

import (
	"context"
	"ctchen222/tictactoe-match/internal/bot"
	"ctchen222/tictactoe-match/internal/events"
	"ctchen222/tictactoe-match/internal/game"
	"ctchen222/tictactoe-match/internal/match"
	"ctchen222/tictactoe-match/internal/player"
	"ctchen222/tictactoe-match/pkg/proto"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("session")

// Mode selects who plays the O seat (or X, if the computer opens).
type Mode string

const (
	// ModeFriend is two humans sharing one client.
	ModeFriend Mode = "friend"
	// ModeComputer puts the engine in one seat.
	ModeComputer Mode = "computer"
)

// DefaultBotDelay is how long the computer "thinks" before it moves.
const DefaultBotDelay = 500 * time.Millisecond

const subscriberBuffer = 16

var (
	ErrNotFound      = errors.New("session not found")
	ErrNoOpponent    = errors.New("session has no computer opponent")
	ErrNotBotTurn    = errors.New("it is not the computer's turn")
	ErrInvalidConfig = errors.New("invalid session config")
	ErrClosed        = errors.New("session closed")
)

// Config describes a match to start.
type Config struct {
	Mode        Mode            `json:"mode"`
	Difficulty  bot.Difficulty  `json:"difficulty,omitempty"`
	RoundLimit  int             `json:"round_limit"`
	PlayerXID   string          `json:"player_x_id,omitempty"`
	PlayerXName string          `json:"player_x_name,omitempty"`
	PlayerOID   string          `json:"player_o_id,omitempty"`
	PlayerOName string          `json:"player_o_name,omitempty"`
	BotMark     game.PlayerMark `json:"bot_mark,omitempty"`
	BotDelay    time.Duration   `json:"bot_delay"`
}

// normalize fills defaults and rejects configs that cannot start a match.
func (c Config) normalize() (Config, error) {
	if c.Mode == "" {
		c.Mode = ModeComputer
	}
	if c.RoundLimit == 0 {
		c.RoundLimit = match.DefaultRoundLimit
	}
	if c.RoundLimit < 1 {
		return c, fmt.Errorf("%w: %w: %d", ErrInvalidConfig, match.ErrInvalidRoundLimit, c.RoundLimit)
	}
	if c.BotDelay <= 0 {
		c.BotDelay = DefaultBotDelay
	}

	switch c.Mode {
	case ModeFriend:
		c.Difficulty = ""
		c.BotMark = game.None
	case ModeComputer:
		if c.Difficulty == "" {
			c.Difficulty = bot.Hard
		}
		difficulty, err := bot.ParseDifficulty(string(c.Difficulty))
		if err != nil {
			return c, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		c.Difficulty = difficulty
		if c.BotMark == game.None {
			c.BotMark = game.PlayerO
		}
		if !c.BotMark.Valid() {
			return c, fmt.Errorf("%w: bot mark %q", ErrInvalidConfig, c.BotMark)
		}
	default:
		return c, fmt.Errorf("%w: mode %q", ErrInvalidConfig, c.Mode)
	}
	return c, nil
}

// MoveChooser picks a cell for the automated player.
type MoveChooser interface {
	ChooseMove(board game.Board, difficulty bot.Difficulty, botMark, humanMark game.PlayerMark) (int, error)
}

// Option customizes a Session.
type Option func(*Session)

// WithScheduler replaces the wall-clock scheduler used for bot moves.
func WithScheduler(s Scheduler) Option {
	return func(sess *Session) { sess.scheduler = s }
}

// WithChooser replaces the engine.
func WithChooser(c MoveChooser) Option {
	return func(sess *Session) { sess.chooser = c }
}

// WithClock replaces time.Now for activity and snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(sess *Session) { sess.now = now }
}

// WithStore persists a snapshot after every transition.
func WithStore(st Store) Option {
	return func(sess *Session) { sess.store = st }
}

type subscriber struct {
	ch        chan events.Event
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Session is one independently owned match between two seats. All methods are
// safe for concurrent use; moves are applied one at a time.
type Session struct {
	ID string

	mu        sync.Mutex
	cfg       Config
	players   map[game.PlayerMark]*player.Player
	match     *match.Match
	chooser   MoveChooser
	scheduler Scheduler
	store     Store
	now       func() time.Time

	lastActive time.Time

	timer      Timer
	generation uint64
	pending    bool

	subs   map[*subscriber]struct{}
	closed bool
}

// New starts a match described by cfg. If the computer holds X it is
// scheduled to open the first round.
func New(ctx context.Context, cfg Config, opts ...Option) (*Session, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	m, err := match.New(cfg.RoundLimit)
	if err != nil {
		return nil, err
	}

	s := newSession(uuid.New().String(), cfg, m, opts...)
	s.players[game.PlayerX] = s.seat(game.PlayerX, cfg.PlayerXID, cfg.PlayerXName)
	s.players[game.PlayerO] = s.seat(game.PlayerO, cfg.PlayerOID, cfg.PlayerOName)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.afterTransitionLocked(ctx)
	return s, nil
}

// Restore rebuilds a session from a snapshot, for example after a restart.
func Restore(ctx context.Context, snap Snapshot, opts ...Option) (*Session, error) {
	if snap.ID == "" {
		return nil, fmt.Errorf("%w: snapshot without id", match.ErrInvalidState)
	}
	cfg, err := snap.Config.normalize()
	if err != nil {
		return nil, err
	}

	m, err := match.Restore(snap.State)
	if err != nil {
		return nil, err
	}
	if m.RoundLimit() != cfg.RoundLimit {
		return nil, fmt.Errorf("%w: round limit %d does not match config %d", match.ErrInvalidState, m.RoundLimit(), cfg.RoundLimit)
	}

	s := newSession(snap.ID, cfg, m, opts...)
	for _, p := range []player.Player{snap.PlayerX, snap.PlayerO} {
		if !p.Mark.Valid() {
			return nil, fmt.Errorf("%w: player %q has mark %q", match.ErrInvalidState, p.ID, p.Mark)
		}
		s.players[p.Mark] = &p
	}
	if len(s.players) != 2 {
		return nil, fmt.Errorf("%w: both seats must be filled", match.ErrInvalidState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.botToMoveLocked() {
		s.scheduleBotLocked()
	}
	return s, nil
}

func newSession(id string, cfg Config, m *match.Match, opts ...Option) *Session {
	s := &Session{
		ID:        id,
		cfg:       cfg,
		players:   make(map[game.PlayerMark]*player.Player, 2),
		match:     m,
		chooser:   bot.NewEngine(),
		scheduler: ClockScheduler{},
		now:       time.Now,
		subs:      make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActive = s.now()
	return s
}

func (s *Session) seat(mark game.PlayerMark, id, name string) *player.Player {
	if s.cfg.Mode == ModeComputer && mark == s.cfg.BotMark {
		return bot.NewBotPlayer(mark)
	}
	if id == "" {
		id = uuid.New().String()
	}
	return player.NewPlayer(id, name, mark)
}

// Config returns the normalized configuration.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// RequestMove places the current mover's mark at index on behalf of a human.
// While the computer is to move the request is rejected with game.ErrMoveLocked.
func (s *Session) RequestMove(ctx context.Context, index int) (proto.SessionView, error) {
	ctx, span := tracer.Start(ctx, "session.RequestMove", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.Int("move.index", index),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return s.viewLocked(), recordError(span, err)
	}
	if s.botToMoveLocked() {
		return s.viewLocked(), recordError(span, game.ErrMoveLocked)
	}

	if err := s.applyLocked(ctx, index, false); err != nil {
		slog.InfoContext(ctx, "Rejected move", "session.id", s.ID, "move.index", index, "error", err)
		return s.viewLocked(), recordError(span, err)
	}
	return s.viewLocked(), nil
}

// RequestAutomatedMove asks the engine for a move and applies it immediately,
// cancelling any scheduled one. It does not wait for the bot delay.
func (s *Session) RequestAutomatedMove(ctx context.Context) (proto.SessionView, error) {
	ctx, span := tracer.Start(ctx, "session.RequestAutomatedMove", trace.WithAttributes(
		attribute.String("session.id", s.ID),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return s.viewLocked(), recordError(span, err)
	}
	s.cancelPendingLocked()
	if err := s.botMoveLocked(ctx); err != nil {
		if s.botToMoveLocked() {
			s.scheduleBotLocked()
		}
		return s.viewLocked(), recordError(span, err)
	}
	return s.viewLocked(), nil
}

// StartRound moves on from a decided round. After the last round this decides
// the match instead.
func (s *Session) StartRound(ctx context.Context) (proto.SessionView, error) {
	ctx, span := tracer.Start(ctx, "session.StartRound", trace.WithAttributes(
		attribute.String("session.id", s.ID),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return s.viewLocked(), recordError(span, err)
	}
	if err := s.match.AdvanceRound(); err != nil {
		return s.viewLocked(), recordError(span, err)
	}
	s.cancelPendingLocked()

	if s.match.Phase() == match.MatchDecided {
		result, _ := s.match.Result()
		metrics.matchesDecided.Add(ctx, 1, metric.WithAttributes(
			attribute.String("session.mode", string(s.cfg.Mode)),
			attribute.Bool("match.tie", result.Tie),
		))
		slog.InfoContext(ctx, "Match decided", "session.id", s.ID, "match.winner", result.Winner, "match.tie", result.Tie)
		s.publishLocked(events.TypeMatchDecided, s.matchDecidedPayloadLocked(result))
	}
	s.afterTransitionLocked(ctx)
	return s.viewLocked(), nil
}

// RestartMatch abandons the current match and starts over at round 1.
func (s *Session) RestartMatch(ctx context.Context) (proto.SessionView, error) {
	ctx, span := tracer.Start(ctx, "session.RestartMatch", trace.WithAttributes(
		attribute.String("session.id", s.ID),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return s.viewLocked(), recordError(span, err)
	}
	s.cancelPendingLocked()
	s.match.Restart()
	slog.InfoContext(ctx, "Match restarted", "session.id", s.ID)
	s.afterTransitionLocked(ctx)
	return s.viewLocked(), nil
}

// View returns the current render state.
func (s *Session) View() proto.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Snapshot returns the persistable state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of events for this session and a func that
// stops the subscription. The first event is a state_updated carrying the
// current view; later events follow in order. A subscriber that falls behind
// is dropped and its channel closed.
func (s *Session) Subscribe() (<-chan events.Event, func()) {
	sub := &subscriber{ch: make(chan events.Event, subscriberBuffer)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	if current, err := events.New(events.TypeStateUpdated, s.viewLocked()); err == nil {
		sub.ch <- current
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	return sub.ch, func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		sub.close()
	}
}

// Close cancels any pending computer move and ends every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancelPendingLocked()
	s.publishLocked(events.TypeSessionClosed, events.SessionClosedPayload{SessionID: s.ID})
	s.closed = true
	for sub := range s.subs {
		sub.close()
		delete(s.subs, sub)
	}
}

// touch marks the session as in use.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}

// idleSince returns when the session was last used. Sessions with subscribers
// are never idle; closed ones always are.
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return time.Time{}, true
	}
	if len(s.subs) > 0 {
		return time.Time{}, false
	}
	return s.lastActive, true
}

func (s *Session) checkOpenLocked() error {
	if s.closed {
		return fmt.Errorf("%w: %s", ErrClosed, s.ID)
	}
	return nil
}

// botToMoveLocked reports whether the computer holds the current turn.
func (s *Session) botToMoveLocked() bool {
	return s.cfg.Mode == ModeComputer &&
		s.match.Status() == match.Active &&
		s.match.Mover() == s.cfg.BotMark
}

func (s *Session) botMoveLocked(ctx context.Context) error {
	if s.cfg.Mode != ModeComputer {
		return ErrNoOpponent
	}
	if s.match.Status() != match.Active {
		board := s.match.Board()
		if board.IsBoardFull() {
			return game.ErrNoLegalMove
		}
		return game.ErrGameNotActive
	}
	if s.match.Mover() != s.cfg.BotMark {
		return ErrNotBotTurn
	}

	start := time.Now()
	index, err := s.chooser.ChooseMove(s.match.Board(), s.cfg.Difficulty, s.cfg.BotMark, s.cfg.BotMark.Opponent())
	metrics.botDecision.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("bot.difficulty", string(s.cfg.Difficulty)),
	))
	if err != nil {
		return err
	}
	return s.applyLocked(ctx, index, true)
}

// applyLocked runs one placement through the match and handles whatever the
// placement decided. On error nothing changes.
func (s *Session) applyLocked(ctx context.Context, index int, automated bool) error {
	mover := s.match.Mover()
	outcome, err := s.match.Place(index)
	if err != nil {
		return err
	}

	metrics.moves.Add(ctx, 1, metric.WithAttributes(
		attribute.String("player.mark", string(mover)),
		attribute.Bool("player.bot", automated),
	))
	slog.DebugContext(ctx, "Move applied", "session.id", s.ID, "player.mark", mover, "move.index", index, "player.bot", automated)

	if outcome.Decided() {
		metrics.roundsDecided.Add(ctx, 1, metric.WithAttributes(
			attribute.String("round.outcome", outcome.Kind.String()),
		))
		s.publishLocked(events.TypeRoundDecided, s.roundDecidedPayloadLocked(outcome))
	}
	s.afterTransitionLocked(ctx)
	return nil
}

// afterTransitionLocked schedules the computer if it is to move, pushes the
// new view and persists.
func (s *Session) afterTransitionLocked(ctx context.Context) {
	s.lastActive = s.now()
	if s.botToMoveLocked() {
		s.scheduleBotLocked()
	}
	s.publishLocked(events.TypeStateUpdated, s.viewLocked())
	s.persistLocked(ctx)
}

func (s *Session) scheduleBotLocked() {
	s.cancelPendingLocked()
	generation := s.generation
	s.pending = true
	s.timer = s.scheduler.AfterFunc(s.cfg.BotDelay, func() {
		s.runScheduled(generation)
	})
}

// cancelPendingLocked invalidates any scheduled computer move.
func (s *Session) cancelPendingLocked() {
	s.generation++
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) runScheduled(generation uint64) {
	ctx, span := tracer.Start(context.Background(), "session.scheduledBotMove", trace.WithAttributes(
		attribute.String("session.id", s.ID),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || generation != s.generation {
		return
	}
	s.pending = false
	s.timer = nil

	if err := s.botMoveLocked(ctx); err != nil {
		slog.WarnContext(ctx, "Scheduled computer move failed", "session.id", s.ID, "error", err)
		recordError(span, err)
	}
}

func (s *Session) publishLocked(eventType string, payload any) {
	event, err := events.New(eventType, payload)
	if err != nil {
		slog.Error("Failed to build event", "session.id", s.ID, "event", eventType, "error", err)
		return
	}

	for sub := range s.subs {
		select {
		case sub.ch <- event:
		default:
			slog.Warn("Dropping slow subscriber", "session.id", s.ID)
			sub.close()
			delete(s.subs, sub)
		}
	}
}

func (s *Session) persistLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, s.snapshotLocked()); err != nil {
		slog.ErrorContext(ctx, "Failed to save session snapshot", "session.id", s.ID, "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:        s.ID,
		Config:    s.cfg,
		PlayerX:   *s.players[game.PlayerX],
		PlayerO:   *s.players[game.PlayerO],
		State:     s.match.State(),
		UpdatedAt: s.now().UTC(),
	}
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
