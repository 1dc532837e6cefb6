package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/nback/internal/model"
	"github.com/verte-zerg/nback/internal/nback"
)

// Options carries the collaborators of a Session. Every field is optional.
type Options struct {
	HighScores HighScoreStore
	Results    ResultRecorder
	Logger     *zap.Logger
	Clock      Clock
}

// Session is the N-back state machine. It owns at most one advancement
// loop at a time; all mutable state is guarded by mu.
type Session struct {
	gen        Generator
	highScores HighScoreStore
	results    ResultRecorder
	logger     *zap.Logger
	clock      Clock

	// ctrlMu serializes Start and Stop.
	ctrlMu sync.Mutex

	mu          sync.Mutex
	mode        model.GameMode
	cfg         model.SessionConfig
	id          string
	startedAt   time.Time
	visual      nback.Sequence
	audio       nback.Sequence
	status      Status
	index       int
	stimulus    Stimulus
	canRespond  bool
	responded   map[int]struct{}
	lastCorrect *bool
	score       int
	responses   int
	highScore   int
	newHigh     bool
	cancel      context.CancelFunc
	done        chan struct{}
	subs        []chan State
}

// New creates an idle session and reads the previous high score.
func New(ctx context.Context, gen Generator, opts Options) *Session {
	s := &Session{
		gen:        gen,
		highScores: opts.HighScores,
		results:    opts.Results,
		logger:     opts.Logger,
		clock:      opts.Clock,
		responded:  map[int]struct{}{},
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.highScores != nil {
		hs, err := s.highScores.HighScore(ctx)
		if err != nil {
			s.logger.Warn("failed to load high score", zap.Error(err))
		} else {
			s.highScore = hs
		}
	}
	return s
}

// Start generates new sequences and runs a fresh session. Invalid
// configuration is reported before any state changes. A running session
// is stopped first.
func (s *Session) Start(ctx context.Context, cfg model.SessionConfig) error {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	visual, audio, err := s.generate(cfg)
	if err != nil {
		return err
	}
	s.stopLoop()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.cfg = cfg
	s.mode = cfg.Mode
	s.id = uuid.NewString()
	s.startedAt = s.clock.Now()
	s.visual = visual
	s.audio = audio
	s.status = StatusRunning
	s.index = 0
	s.stimulus = Stimulus{}
	s.canRespond = false
	s.responded = map[int]struct{}{}
	s.lastCorrect = nil
	s.score = 0
	s.responses = 0
	s.newHigh = false
	s.cancel = cancel
	s.done = done
	id := s.id
	s.mu.Unlock()

	s.logger.Info("session started",
		zap.String("session_id", id),
		zap.Stringer("mode", cfg.Mode),
		zap.Int("n", cfg.Settings.NBack),
		zap.Int("events", cfg.Settings.Events),
		zap.Int("interval_ms", cfg.Settings.IntervalMs),
		zap.Int("match_percent", cfg.Settings.MatchPercent),
	)
	go s.run(loopCtx, done, cfg.Settings.Interval(), cfg.Settings.Events)
	return nil
}

// Stop ends a running session. When Stop returns the loop has exited and
// no further state change comes from it.
func (s *Session) Stop() {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	s.stopLoop()
}

// Close stops the session and closes every subscription channel.
func (s *Session) Close() {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

// Wait blocks until the current loop, if any, has exited.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Respond registers a match claim for the current stimulus. It returns
// false, without changing anything, when the session is not running, the
// current index cannot match yet, or it was already answered.
func (s *Session) Respond() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning || !s.canRespond {
		return false
	}
	if _, ok := s.responded[s.index]; ok {
		return false
	}
	s.responded[s.index] = struct{}{}
	s.responses++
	correct := s.matchAt(s.index)
	if correct {
		s.score++
	}
	s.lastCorrect = &correct
	s.notify()
	return true
}

// SetGameMode selects the mode reported while idle or finished. It is
// ignored while a session runs.
func (s *Session) SetGameMode(mode model.GameMode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		return false
	}
	s.mode = mode
	s.notify()
	return true
}

// Mode returns the current game mode.
func (s *Session) Mode() model.GameMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Subscribe returns a channel that always holds the latest state.
// Intermediate states may be skipped by slow readers.
func (s *Session) Subscribe() <-chan State {
	ch := make(chan State, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, ch)
	ch <- s.snapshot()
	return ch
}

func (s *Session) generate(cfg model.SessionConfig) (visual, audio nback.Sequence, err error) {
	st := cfg.Settings
	if st.IntervalMs <= 0 {
		return nil, nil, &nback.ConfigError{Field: "eventIntervalMs", Reason: "must be positive"}
	}
	if !cfg.Mode.HasVisual() && !cfg.Mode.HasAudio() {
		return nil, nil, &nback.ConfigError{Field: "gameMode", Reason: "unknown mode " + cfg.Mode.String()}
	}
	if cfg.Mode.HasVisual() {
		if st.GridSize < 2 {
			return nil, nil, &nback.ConfigError{Field: "gridSize", Reason: "must be at least 2"}
		}
		visual, err = s.generateOne(st, nback.GridCells(st.GridSize))
		if err != nil {
			return nil, nil, err
		}
	}
	if cfg.Mode.HasAudio() {
		if st.Letters > 26 {
			return nil, nil, &nback.ConfigError{Field: "numberOfLetters", Reason: "at most 26 letters"}
		}
		audio, err = s.generateOne(st, st.Letters)
		if err != nil {
			return nil, nil, err
		}
	}
	return visual, audio, nil
}

func (s *Session) generateOne(st model.GameSettings, symbolSpace int) (nback.Sequence, error) {
	seq, err := s.gen.Generate(st.Events, symbolSpace, st.MatchPercent, st.NBack)
	if err != nil {
		return nil, err
	}
	if len(seq) != st.Events {
		return nil, &nback.ConfigError{Field: "sequenceLength", Reason: "generator returned a sequence of the wrong length"}
	}
	return seq, nil
}

// stopLoop cancels the running loop and waits for it. Caller holds ctrlMu.
func (s *Session) stopLoop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Session) run(ctx context.Context, done chan struct{}, interval time.Duration, total int) {
	defer close(done)
	for i := 0; i < total; i++ {
		if !s.present(ctx, i) {
			s.finish(false)
			return
		}
		select {
		case <-ctx.Done():
			s.finish(false)
			return
		case <-s.clock.After(interval):
		}
	}
	s.finish(true)
}

// present publishes stimulus i unless ctx was cancelled.
func (s *Session) present(ctx context.Context, i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || s.status != StatusRunning {
		return false
	}
	s.index = i
	s.stimulus = Stimulus{}
	if s.visual != nil {
		s.stimulus.Position = s.visual[i]
	}
	if s.audio != nil {
		s.stimulus.Letter = nback.Letter(s.audio[i])
	}
	s.canRespond = i >= s.cfg.Settings.NBack
	s.lastCorrect = nil
	s.notify()
	return true
}

func (s *Session) finish(completed bool) {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return
	}
	s.status = StatusFinished
	s.canRespond = false
	s.newHigh = s.score > s.highScore
	if s.newHigh {
		s.highScore = s.score
	}
	res := model.SessionResult{
		ID:           s.id,
		StartedAt:    s.startedAt,
		EndedAt:      s.clock.Now(),
		Mode:         s.cfg.Mode,
		Settings:     s.cfg.Settings,
		Score:        s.score,
		Responses:    s.responses,
		Matches:      s.countMatches(),
		Completed:    completed,
		NewHighScore: s.newHigh,
	}
	s.notify()
	s.mu.Unlock()

	s.logger.Info("session finished",
		zap.String("session_id", res.ID),
		zap.Int("score", res.Score),
		zap.Int("responses", res.Responses),
		zap.Int("matches", res.Matches),
		zap.Bool("completed", res.Completed),
	)
	s.persist(res)
}

// persist hands the result to the collaborators. Failures are logged only.
func (s *Session) persist(res model.SessionResult) {
	ctx := context.Background()
	if res.NewHighScore && s.highScores != nil {
		if err := s.highScores.SaveHighScore(ctx, res.Score); err != nil {
			s.logger.Warn("failed to save high score", zap.String("session_id", res.ID), zap.Error(err))
		} else {
			s.logger.Info("new high score", zap.String("session_id", res.ID), zap.Int("score", res.Score))
		}
	}
	if s.results != nil {
		if err := s.results.RecordSession(ctx, res); err != nil {
			s.logger.Warn("failed to record session", zap.String("session_id", res.ID), zap.Error(err))
		}
	}
}

// matchAt is correct if any presented modality matches. Caller holds mu.
func (s *Session) matchAt(i int) bool {
	n := s.cfg.Settings.NBack
	return nback.IsMatch(s.visual, i, n) || nback.IsMatch(s.audio, i, n)
}

func (s *Session) countMatches() int {
	count := 0
	for i := 0; i < s.cfg.Settings.Events; i++ {
		if s.matchAt(i) {
			count++
		}
	}
	return count
}

func (s *Session) snapshot() State {
	st := State{
		ID:           s.id,
		Mode:         s.mode,
		Status:       s.status,
		Settings:     s.cfg.Settings,
		CurrentIndex: s.index,
		TotalEvents:  s.cfg.Settings.Events,
		Stimulus:     s.stimulus,
		CanRespond:   s.canRespond,
		Score:        s.score,
		Responses:    s.responses,
		HighScore:    s.highScore,
		NewHighScore: s.newHigh,
	}
	if s.lastCorrect != nil {
		v := *s.lastCorrect
		st.LastResponseCorrect = &v
	}
	return st
}

// notify pushes the latest state to every subscriber. Caller holds mu.
func (s *Session) notify() {
	st := s.snapshot()
	for _, ch := range s.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}
