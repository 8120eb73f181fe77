package sound

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"CoinSentinel/internal/metrics"

	"go.uber.org/zap"
)

// PollInterval is how often a loop checks its stop signal between plays.
const PollInterval = 100 * time.Millisecond

// Player plays one sound file to completion or until ctx is cancelled.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Key identifies a loop: the same firing never loops the same file twice.
type Key struct {
	Path   string
	Firing string
}

type loop struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Looper owns every active sound loop.
type Looper struct {
	BaseDir string
	Metrics *metrics.Metrics

	player Player
	poll   time.Duration

	mu    sync.Mutex
	loops map[Key]*loop
	wg    sync.WaitGroup
}

// NewLooper creates a Looper. Relative sound paths resolve against baseDir.
func NewLooper(player Player, baseDir string) *Looper {
	return &Looper{
		BaseDir: baseDir,
		player:  player,
		poll:    PollInterval,
		loops:   make(map[Key]*loop),
	}
}

// Resolve returns the absolute sound path for a rule's sound reference.
func (lp *Looper) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(lp.BaseDir, path)
}

// Start loops the sound for a firing until the returned stop func is
// called. Starting a key that is already looping returns the running
// loop's stop func and started=false. A missing file is logged and
// skipped. stop is safe to call any number of times.
func (lp *Looper) Start(path, firingID string) (stop func(), started bool) {
	path = lp.Resolve(path)
	if _, err := os.Stat(path); err != nil {
		zap.L().Warn("alert sound not found", zap.String("path", path), zap.Error(err))
		return func() {}, false
	}

	key := Key{Path: path, Firing: firingID}
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if l, ok := lp.loops[key]; ok {
		return l.cancel, false
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{ctx: ctx, cancel: cancel}
	lp.loops[key] = l
	lp.Metrics.SetSoundLoops(len(lp.loops))

	lp.wg.Add(1)
	go lp.run(key, l)
	return l.cancel, true
}

func (lp *Looper) run(key Key, l *loop) {
	defer lp.wg.Done()
	defer func() {
		lp.mu.Lock()
		if lp.loops[key] == l {
			delete(lp.loops, key)
		}
		lp.Metrics.SetSoundLoops(len(lp.loops))
		lp.mu.Unlock()
	}()

	for {
		if l.ctx.Err() != nil {
			return
		}
		if err := lp.player.Play(l.ctx, key.Path); err != nil && l.ctx.Err() == nil {
			zap.L().Error("play alert sound", zap.String("path", key.Path), zap.Error(err))
			return
		}
		select {
		case <-l.ctx.Done():
			return
		case <-time.After(lp.poll):
		}
	}
}

// Active returns the number of running loops.
func (lp *Looper) Active() int {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return len(lp.loops)
}

// StopAll signals every loop to stop and waits for them to exit.
func (lp *Looper) StopAll() {
	lp.mu.Lock()
	for _, l := range lp.loops {
		l.cancel()
	}
	lp.mu.Unlock()
	lp.wg.Wait()
}
