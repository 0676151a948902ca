package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/config"
	"golang.org/x/time/rate"
)

// Dispatch results reported to the result hook.
const (
	ResultSent        = "sent"
	ResultFailed      = "failed"
	ResultDuplicate   = "duplicate"
	ResultRateLimited = "rate_limited"
	ResultDisabled    = "disabled"
)

// Dispatcher sends notifications in the background. Notify never blocks on
// delivery and never reports an error to the caller.
type Dispatcher struct {
	notifier Notifier
	enabled  bool
	limiter  *rate.Limiter
	dedup    *cache.Cache
	timeout  time.Duration
	wg       sync.WaitGroup

	mu       sync.RWMutex
	onResult func(t Type, result string)
}

func NewDispatcher(notifier Notifier, cfg config.NotificationConfig) *Dispatcher {
	limit := rate.Limit(cfg.RatePerSec)
	if cfg.RatePerSec <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	window := cfg.DedupWindow
	if window <= 0 {
		window = 10 * time.Minute
	}

	return &Dispatcher{
		notifier: notifier,
		enabled:  cfg.Enabled,
		limiter:  rate.NewLimiter(limit, burst),
		dedup:    cache.New(window, 2*window),
		timeout:  cfg.SendTimeout,
	}
}

// OnResult registers a hook called once per Notify with its outcome.
func (d *Dispatcher) OnResult(fn func(t Type, result string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onResult = fn
}

func (d *Dispatcher) Enabled() bool {
	return d.enabled
}

// Notify queues p for token. Empty tokens are ignored. A payload repeating
// the same event for the same token is sent once per dedup window.
func (d *Dispatcher) Notify(token string, p Payload) {
	if token == "" {
		return
	}
	if !d.enabled {
		d.report(p.Type, ResultDisabled)
		return
	}
	if err := d.dedup.Add(dedupKey(token, p), true, cache.DefaultExpiration); err != nil {
		d.report(p.Type, ResultDuplicate)
		return
	}
	if !d.limiter.Allow() {
		nuts.L.Warnf("[Dispatcher] Dropping %s for hive %s: rate limited", p.Type, p.Data["hiveId"])
		d.report(p.Type, ResultRateLimited)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx := context.Background()
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}

		if err := d.notifier.Send(ctx, token, p); err != nil {
			nuts.L.Warnf("[Dispatcher] %s via %s failed: %v", p.Type, d.notifier.Name(), err)
			d.report(p.Type, ResultFailed)
			return
		}
		d.report(p.Type, ResultSent)
	}()
}

// Wait blocks until every queued send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) report(t Type, result string) {
	d.mu.RLock()
	fn := d.onResult
	d.mu.RUnlock()
	if fn != nil {
		fn(t, result)
	}
}

func dedupKey(token string, p Payload) string {
	return strings.Join([]string{token, string(p.Type), p.Data["hiveId"], p.Data["detectionCount"], p.Event}, "|")
}
