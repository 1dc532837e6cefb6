package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/nback/internal/model"
	"github.com/verte-zerg/nback/internal/nback"
)

// manualClock hands every pending timer to the test, which fires it.
type manualClock struct {
	timers chan chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{timers: make(chan chan time.Time, 64)}
}

func (c *manualClock) Now() time.Time { return time.Unix(0, 0) }

func (c *manualClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.timers <- ch
	return ch
}

// next waits until the loop has presented a stimulus and is waiting.
func (c *manualClock) next(t *testing.T) chan time.Time {
	t.Helper()
	select {
	case ch := <-c.timers:
		return ch
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not wait for the next tick")
		return nil
	}
}

// tick advances the loop past the current stimulus.
func (c *manualClock) tick(t *testing.T) {
	t.Helper()
	c.next(t) <- time.Unix(0, 0)
}

type scriptedGen struct {
	seqs  []nback.Sequence
	calls int
}

func (g *scriptedGen) Generate(length, _, _, _ int) (nback.Sequence, error) {
	seq := g.seqs[g.calls%len(g.seqs)]
	g.calls++
	if len(seq) != length {
		return nil, errors.New("scripted sequence length mismatch")
	}
	return seq, nil
}

type fakeScores struct {
	mu      sync.Mutex
	initial int
	saved   []int
	results []model.SessionResult
}

func (f *fakeScores) HighScore(context.Context) (int, error) {
	return f.initial, nil
}

func (f *fakeScores) SaveHighScore(_ context.Context, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, score)
	return nil
}

func (f *fakeScores) RecordSession(_ context.Context, res model.SessionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, res)
	return nil
}

func settings(n, events int) model.GameSettings {
	s := model.DefaultSettings()
	s.NBack = n
	s.Events = events
	return s
}

func newTestSession(t *testing.T, gen Generator, scores *fakeScores) (*Session, *manualClock) {
	t.Helper()
	clock := newManualClock()
	opts := Options{Clock: clock}
	if scores != nil {
		opts.HighScores = scores
		opts.Results = scores
	}
	s := New(context.Background(), gen, opts)
	t.Cleanup(s.Close)
	return s, clock
}

func TestStartRejectsInvalidConfigWithoutStateChange(t *testing.T) {
	s, _ := newTestSession(t, nback.NewWithSeed(1), nil)

	err := s.Start(context.Background(), model.SessionConfig{Settings: settings(5, 5), Mode: model.ModeVisual})
	require.Error(t, err)
	assert.ErrorIs(t, err, nback.ErrInvalidConfig)
	assert.Equal(t, StatusIdle, s.Snapshot().Status)

	bad := settings(2, 10)
	bad.IntervalMs = 0
	err = s.Start(context.Background(), model.SessionConfig{Settings: bad, Mode: model.ModeAudio})
	assert.ErrorIs(t, err, nback.ErrInvalidConfig)
	assert.Equal(t, StatusIdle, s.Snapshot().Status)

	for _, size := range []int{-3, 0, 1} {
		grid := settings(2, 10)
		grid.GridSize = size
		err = s.Start(context.Background(), model.SessionConfig{Settings: grid, Mode: model.ModeDual})
		var cfgErr *nback.ConfigError
		require.ErrorAs(t, err, &cfgErr, "grid size %d", size)
		assert.Equal(t, "gridSize", cfgErr.Field)
		assert.Equal(t, StatusIdle, s.Snapshot().Status)
	}

	audioOnly := settings(2, 10)
	audioOnly.GridSize = 0
	require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: audioOnly, Mode: model.ModeAudio}))
}

func TestCloseEndsSubscriptions(t *testing.T) {
	s := New(context.Background(), nback.NewWithSeed(3), Options{Clock: newManualClock()})
	updates := s.Subscribe()
	<-updates
	require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: settings(2, 10), Mode: model.ModeVisual}))

	s.Close()
	assert.Equal(t, StatusFinished, s.Snapshot().Status)
	for range updates {
	}
	_, ok := <-updates
	assert.False(t, ok)
}

func TestInvalidRestartKeepsFinishedSession(t *testing.T) {
	gen := &scriptedGen{seqs: []nback.Sequence{{1, 1, 1}}}
	s, clock := newTestSession(t, gen, nil)
	require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: settings(1, 3), Mode: model.ModeVisual}))
	clock.next(t) <- time.Unix(0, 0)
	clock.next(t) // index 1
	require.True(t, s.Respond())
	s.Stop()
	before := s.Snapshot()
	require.Equal(t, StatusFinished, before.Status)

	bad := settings(1, 3)
	bad.IntervalMs = -1
	err := s.Start(context.Background(), model.SessionConfig{Settings: bad, Mode: model.ModeVisual})
	require.Error(t, err)
	assert.Equal(t, before, s.Snapshot())
}

func TestCanRespondWindow(t *testing.T) {
	s, clock := newTestSession(t, nback.NewWithSeed(2), nil)
	require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: settings(2, 5), Mode: model.ModeVisual}))

	want := []bool{false, false, true, true, true}
	for i, canRespond := range want {
		ch := clock.next(t)
		st := s.Snapshot()
		assert.Equal(t, i, st.CurrentIndex)
		assert.Equal(t, 5, st.TotalEvents)
		assert.Equal(t, canRespond, st.CanRespond, "index %d", i)
		assert.NotZero(t, st.Stimulus.Position)
		assert.Empty(t, st.Stimulus.Letter)
		ch <- time.Unix(0, 0)
	}
	s.Wait()
	assert.Equal(t, StatusFinished, s.Snapshot().Status)
	assert.False(t, s.Snapshot().CanRespond)
}

func TestRespondScoresAndIgnoresDuplicates(t *testing.T) {
	gen := &scriptedGen{seqs: []nback.Sequence{{1, 2, 1, 3, 3}}}
	s, clock := newTestSession(t, gen, nil)
	require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: settings(2, 5), Mode: model.ModeVisual}))

	clock.tick(t) // 0
	ch := clock.next(t)
	assert.False(t, s.Respond(), "index 1 is before n")
	ch <- time.Unix(0, 0)

	ch = clock.next(t) // index 2 matches index 0
	require.True(t, s.Respond())
	assert.False(t, s.Respond(), "second response at the same index")
	st := s.Snapshot()
	assert.Equal(t, 1, st.Score)
	assert.Equal(t, 1, st.Responses)
	require.NotNil(t, st.LastResponseCorrect)
	assert.True(t, *st.LastResponseCorrect)
	ch <- time.Unix(0, 0)

	ch = clock.next(t) // index 3 does not match
	assert.Nil(t, s.Snapshot().LastResponseCorrect, "feedback clears on a new stimulus")
	require.True(t, s.Respond())
	st = s.Snapshot()
	assert.Equal(t, 1, st.Score)
	assert.Equal(t, 2, st.Responses)
	require.NotNil(t, st.LastResponseCorrect)
	assert.False(t, *st.LastResponseCorrect)
	ch <- time.Unix(0, 0)

	clock.tick(t) // 4
	s.Wait()
	assert.False(t, s.Respond(), "finished sessions ignore responses")
	assert.Equal(t, 1, s.Snapshot().Score)
}

func TestAudioModeUsesLetters(t *testing.T) {
	gen := &scriptedGen{seqs: []nback.Sequence{{1, 8, 1}}}
	s, clock := newTestSession(t, gen, nil)
	require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: settings(2, 3), Mode: model.ModeAudio}))

	clock.tick(t)
	clock.tick(t)
	clock.next(t)
	st := s.Snapshot()
	assert.Equal(t, "A", st.Stimulus.Letter)
	assert.Zero(t, st.Stimulus.Position)
	require.True(t, s.Respond())
	assert.Equal(t, 1, s.Snapshot().Score)
}

func TestDualModeEitherModalityScores(t *testing.T) {
	visual := nback.Sequence{1, 2, 3, 4, 5, 4}
	audio := nback.Sequence{1, 2, 3, 4, 5, 6}
	gen := &scriptedGen{seqs: []nback.Sequence{visual, audio}}
	s, clock := newTestSession(t, gen, nil)
	require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: settings(2, 6), Mode: model.ModeDual}))

	for i := 0; i < 5; i++ {
		clock.tick(t)
	}
	clock.next(t)
	st := s.Snapshot()
	require.Equal(t, 5, st.CurrentIndex)
	assert.Equal(t, 4, st.Stimulus.Position)
	assert.Equal(t, "F", st.Stimulus.Letter)
	require.True(t, s.Respond())
	st = s.Snapshot()
	assert.Equal(t, 1, st.Score)
	assert.True(t, *st.LastResponseCorrect)
}

func TestStopPreventsFurtherAdvancement(t *testing.T) {
	scores := &fakeScores{}
	s, clock := newTestSession(t, nback.NewWithSeed(4), scores)
	require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: settings(2, 10), Mode: model.ModeVisual}))

	clock.tick(t)
	pending := clock.next(t) // index 1 presented
	s.Stop()
	stopped := s.Snapshot()
	assert.Equal(t, StatusFinished, stopped.Status)
	assert.Equal(t, 1, stopped.CurrentIndex)

	pending <- time.Unix(0, 0)
	assert.False(t, s.Respond())
	assert.Never(t, func() bool {
		return s.Snapshot().CurrentIndex != 1
	}, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, stopped, s.Snapshot())

	scores.mu.Lock()
	defer scores.mu.Unlock()
	require.Len(t, scores.results, 1)
	assert.False(t, scores.results[0].Completed)
}

func TestHighScoreSignaledOnceOnFinish(t *testing.T) {
	ones := nback.Sequence{1, 1, 1, 1, 1, 1, 1, 1}
	scores := &fakeScores{initial: 5}
	s, clock := newTestSession(t, &scriptedGen{seqs: []nback.Sequence{ones}}, scores)
	require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: settings(1, 8), Mode: model.ModeVisual}))
	assert.Equal(t, 5, s.Snapshot().HighScore)

	for i := 0; i < 8; i++ {
		ch := clock.next(t)
		s.Respond()
		scores.mu.Lock()
		assert.Empty(t, scores.saved, "no signal mid-session")
		scores.mu.Unlock()
		ch <- time.Unix(0, 0)
	}
	s.Wait()

	st := s.Snapshot()
	assert.Equal(t, 7, st.Score)
	assert.True(t, st.NewHighScore)
	assert.Equal(t, 7, st.HighScore)
	s.Stop()

	scores.mu.Lock()
	assert.Equal(t, []int{7}, scores.saved)
	require.Len(t, scores.results, 1)
	assert.True(t, scores.results[0].Completed)
	assert.Equal(t, 7, scores.results[0].Matches)
	scores.mu.Unlock()
}

func TestLowerScoreDoesNotSignal(t *testing.T) {
	ones := nback.Sequence{1, 1, 1, 1, 1}
	scores := &fakeScores{initial: 5}
	s, clock := newTestSession(t, &scriptedGen{seqs: []nback.Sequence{ones}}, scores)
	require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: settings(1, 5), Mode: model.ModeVisual}))

	for i := 0; i < 5; i++ {
		ch := clock.next(t)
		if i <= 3 {
			s.Respond()
		}
		ch <- time.Unix(0, 0)
	}
	s.Wait()
	assert.Equal(t, 3, s.Snapshot().Score)
	assert.False(t, s.Snapshot().NewHighScore)

	scores.mu.Lock()
	defer scores.mu.Unlock()
	assert.Empty(t, scores.saved)
}

func TestRestartResetsState(t *testing.T) {
	ones := nback.Sequence{1, 1, 1, 1}
	scores := &fakeScores{}
	s, clock := newTestSession(t, &scriptedGen{seqs: []nback.Sequence{ones}}, scores)
	cfg := model.SessionConfig{Settings: settings(1, 4), Mode: model.ModeVisual}
	require.NoError(t, s.Start(context.Background(), cfg))
	clock.tick(t)
	clock.next(t)
	require.True(t, s.Respond())
	firstID := s.Snapshot().ID

	require.NoError(t, s.Start(context.Background(), cfg))
	clock.next(t)
	st := s.Snapshot()
	assert.Equal(t, StatusRunning, st.Status)
	assert.Equal(t, 0, st.CurrentIndex)
	assert.Equal(t, 0, st.Score)
	assert.Equal(t, 0, st.Responses)
	assert.NotEqual(t, firstID, st.ID)

	scores.mu.Lock()
	defer scores.mu.Unlock()
	require.Len(t, scores.results, 1, "the replaced session is finalized once")
	assert.Equal(t, firstID, scores.results[0].ID)
}

func TestSetGameModeIgnoredWhileRunning(t *testing.T) {
	s, clock := newTestSession(t, nback.NewWithSeed(5), nil)
	assert.True(t, s.SetGameMode(model.ModeDual))
	assert.Equal(t, model.ModeDual, s.Mode())

	require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: settings(2, 10), Mode: model.ModeAudio}))
	clock.next(t)
	assert.False(t, s.SetGameMode(model.ModeVisual))
	assert.Equal(t, model.ModeAudio, s.Mode())

	s.Stop()
	assert.True(t, s.SetGameMode(model.ModeVisual))
	assert.Equal(t, model.ModeVisual, s.Snapshot().Mode)
}

func TestScoringIsDeterministic(t *testing.T) {
	play := func() int {
		s, clock := newTestSession(t, nback.NewWithSeed(99), nil)
		require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: settings(2, 20), Mode: model.ModeDual}))
		for i := 0; i < 20; i++ {
			ch := clock.next(t)
			if i%3 != 0 {
				s.Respond()
			}
			ch <- time.Unix(0, 0)
		}
		s.Wait()
		return s.Snapshot().Score
	}
	assert.Equal(t, play(), play())
}

func TestSubscribeDeliversLatestState(t *testing.T) {
	s, clock := newTestSession(t, nback.NewWithSeed(6), nil)
	updates := s.Subscribe()
	initial := <-updates
	assert.Equal(t, StatusIdle, initial.Status)

	require.NoError(t, s.Start(context.Background(), model.SessionConfig{Settings: settings(2, 10), Mode: model.ModeVisual}))
	clock.tick(t)
	clock.next(t)
	var last State
	require.Eventually(t, func() bool {
		select {
		case last = <-updates:
		default:
		}
		return last.CurrentIndex == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusRunning, last.Status)
}

func TestRealClockRunsToCompletion(t *testing.T) {
	s := New(context.Background(), nback.NewWithSeed(7), Options{})
	t.Cleanup(s.Close)
	cfg := model.SessionConfig{Settings: settings(2, 10), Mode: model.ModeVisual}
	cfg.Settings.IntervalMs = 1
	require.NoError(t, s.Start(context.Background(), cfg))
	require.Eventually(t, func() bool {
		return s.Snapshot().Status == StatusFinished
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 9, s.Snapshot().CurrentIndex)
}

func TestParentContextCancelFinishes(t *testing.T) {
	scores := &fakeScores{}
	s, clock := newTestSession(t, nback.NewWithSeed(8), scores)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx, model.SessionConfig{Settings: settings(2, 10), Mode: model.ModeVisual}))
	clock.next(t)
	cancel()
	s.Wait()
	assert.Equal(t, StatusFinished, s.Snapshot().Status)

	scores.mu.Lock()
	defer scores.mu.Unlock()
	require.Len(t, scores.results, 1)
	assert.False(t, scores.results[0].Completed)
}
