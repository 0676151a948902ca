// FilePath: internal/sweeper/sweeper.go
package sweeper

import (
	"context"
	"sync/atomic"
	"time"

	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/lease"
	"github.com/varroawatch/hub/internal/models"
	"github.com/varroawatch/hub/internal/notification"
	"github.com/varroawatch/hub/internal/repository"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval  = 20 * time.Minute
	DefaultThreshold = 20 * time.Minute
	DefaultLockKey   = "hivehub:sweeper"
)

// Observer is told about every sweep. The monitoring service implements it.
type Observer interface {
	SweepCompleted(duration time.Duration, deactivated, failures int)
	SweepSkipped()
}

type noopObserver struct{}

func (noopObserver) SweepCompleted(time.Duration, int, int) {}
func (noopObserver) SweepSkipped()                          {}

// Options configure a Sweeper. Zero values select the defaults.
type Options struct {
	Interval    time.Duration
	Threshold   time.Duration
	Timeout     time.Duration
	Concurrency int
	LockKey     string
	Locker      lease.Locker
	Notifier    *notification.Dispatcher
	Observer    Observer
	Now         func() time.Time
}

// Result describes one sweep.
type Result struct {
	Cutoff      time.Time
	Users       int
	Examined    int
	Deactivated int
	Failures    int
	Skipped     bool
	Duration    time.Duration
}

// Sweeper deactivates hives whose last activation is older than the
// threshold. It keeps no state between sweeps.
type Sweeper struct {
	store       repository.Store
	interval    time.Duration
	threshold   time.Duration
	timeout     time.Duration
	concurrency int
	lockKey     string
	locker      lease.Locker
	notifier    *notification.Dispatcher
	observer    Observer
	now         func() time.Time
}

func New(store repository.Store, opts Options) *Sweeper {
	s := &Sweeper{
		store:       store,
		interval:    opts.Interval,
		threshold:   opts.Threshold,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		lockKey:     opts.LockKey,
		locker:      opts.Locker,
		notifier:    opts.Notifier,
		observer:    opts.Observer,
		now:         opts.Now,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.threshold <= 0 {
		s.threshold = DefaultThreshold
	}
	if s.timeout <= 0 || s.timeout > s.interval {
		s.timeout = s.interval
	}
	if s.concurrency <= 0 {
		s.concurrency = 1
	}
	if s.lockKey == "" {
		s.lockKey = DefaultLockKey
	}
	if s.locker == nil {
		s.locker = lease.NewLocalLocker()
	}
	if s.observer == nil {
		s.observer = noopObserver{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Run sweeps once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	nuts.L.Infof("[Sweeper] Started: interval=%v threshold=%v concurrency=%d", s.interval, s.threshold, s.concurrency)
	for {
		select {
		case <-ctx.Done():
			nuts.L.Infof("[Sweeper] Stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. It never fails: errors are logged and counted, and a
// pass that cannot take the lease is skipped.
func (s *Sweeper) Sweep(ctx context.Context) Result {
	started := s.now()
	result := Result{Cutoff: started.UTC().Add(-s.threshold)}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	held, ok, err := s.locker.TryAcquire(ctx, s.lockKey, s.timeout)
	if err != nil {
		nuts.L.Warnf("[Sweeper] Could not acquire lease %s: %v", s.lockKey, err)
		result.Skipped = true
		result.Failures = 1
		s.observer.SweepSkipped()
		return result
	}
	if !ok {
		nuts.L.Infof("[Sweeper] Another sweep holds %s, skipping", s.lockKey)
		result.Skipped = true
		s.observer.SweepSkipped()
		return result
	}
	defer func() {
		if err := held.Release(context.Background()); err != nil {
			nuts.L.Warnf("[Sweeper] %v", err)
		}
	}()

	users, err := s.store.Users().List(ctx)
	if err != nil {
		nuts.L.Errorf("[Sweeper] Failed to list users: %v", err)
		result.Failures = 1
		s.finish(&result, started)
		return result
	}
	result.Users = len(users)

	var examined, deactivated, failures atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, user := range users {
		g.Go(func() error {
			e, d, f := s.sweepUser(ctx, user, result.Cutoff)
			examined.Add(int64(e))
			deactivated.Add(int64(d))
			failures.Add(int64(f))
			return nil
		})
	}
	_ = g.Wait()

	result.Examined = int(examined.Load())
	result.Deactivated = int(deactivated.Load())
	result.Failures = int(failures.Load())
	s.finish(&result, started)
	return result
}

func (s *Sweeper) sweepUser(ctx context.Context, user *models.User, cutoff time.Time) (examined, deactivated, failures int) {
	hives, err := s.store.Hives().ListStale(ctx, user.ID, cutoff)
	if err != nil {
		nuts.L.Warnf("[Sweeper] Failed to list hives of %s: %v", user.ID, err)
		return 0, 0, 1
	}

	for _, hive := range hives {
		examined++
		changed, err := s.store.Hives().DeactivateIfStale(ctx, user.ID, hive.ID, cutoff)
		if err != nil {
			failures++
			nuts.L.Warnf("[Sweeper] Failed to deactivate %s/%s: %v", user.ID, hive.ID, err)
			continue
		}
		if !changed {
			// re-activated since it was listed
			continue
		}
		deactivated++
		nuts.L.Infof("[Sweeper] Deactivated %s/%s (last activation %v)", user.ID, hive.ID, hive.LastActivation)

		if s.notifier != nil {
			s.notifier.Notify(user.Token(), notification.HiveDeactivated(hive, s.threshold))
		}
	}
	return examined, deactivated, failures
}

func (s *Sweeper) finish(result *Result, started time.Time) {
	result.Duration = s.now().Sub(started)
	s.observer.SweepCompleted(result.Duration, result.Deactivated, result.Failures)
	nuts.L.Infof("[Sweeper] Sweep done: users=%d examined=%d deactivated=%d failures=%d in %v",
		result.Users, result.Examined, result.Deactivated, result.Failures, result.Duration)
}
