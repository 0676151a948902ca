package notification

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varroawatch/hub/internal/config"
	"github.com/varroawatch/hub/internal/models"
)

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []Payload
	fail  bool
	delay time.Duration
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(ctx context.Context, token string, p Payload) error {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return stderrors.New("gateway down")
	}
	r.sent = append(r.sent, p)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type resultLog struct {
	mu      sync.Mutex
	results []string
}

func (l *resultLog) hook(_ Type, result string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, result)
}

func (l *resultLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.results...)
}

func enabledConfig() config.NotificationConfig {
	return config.NotificationConfig{Enabled: true, RatePerSec: 100, Burst: 100, DedupWindow: time.Minute, SendTimeout: time.Second}
}

func testHive(count int) *models.Hive {
	return &models.Hive{ID: "hv1", UserID: "usr1", DetectionCount: count, RiskLevel: models.Classify(count)}
}

func TestRiskAlertPayload(t *testing.T) {
	t.Parallel()

	p := RiskAlert(testHive(10))
	assert.Equal(t, TypeRiskAlert, p.Type)
	assert.True(t, p.Silent)
	assert.Equal(t, "hv1", p.Data["hiveId"])
	assert.Equal(t, "medium", p.Data["riskLevel"])
	assert.Equal(t, "10", p.Data["detectionCount"])
	assert.Contains(t, p.Body, "hv1")
}

func TestHiveDeactivatedPayload(t *testing.T) {
	t.Parallel()

	hive := testHive(0)
	hive.Name = "North field"
	p := HiveDeactivated(hive, 20*time.Minute)
	assert.Equal(t, TypeHiveDeactivated, p.Type)
	assert.False(t, p.Silent)
	assert.Equal(t, "North field is not active for at least 20 minutes.", p.Body)
}

func TestDispatcherDisabledByDefault(t *testing.T) {
	t.Parallel()
	n := &recordingNotifier{}
	results := &resultLog{}

	d := NewDispatcher(n, config.NotificationConfig{})
	d.OnResult(results.hook)
	d.Notify("device-token", RiskAlert(testHive(1)))
	d.Wait()

	assert.Equal(t, 0, n.count())
	assert.Equal(t, []string{ResultDisabled}, results.all())
}

func TestDispatcherSendsAndDeduplicates(t *testing.T) {
	t.Parallel()
	n := &recordingNotifier{}
	results := &resultLog{}

	d := NewDispatcher(n, enabledConfig())
	d.OnResult(results.hook)
	d.Notify("device-token", RiskAlert(testHive(1)))
	d.Notify("device-token", RiskAlert(testHive(1)))
	d.Notify("device-token", RiskAlert(testHive(10)))
	d.Notify("", RiskAlert(testHive(100)))
	d.Wait()

	assert.Equal(t, 2, n.count())
	assert.ElementsMatch(t, []string{ResultSent, ResultDuplicate, ResultSent}, results.all())
}

func TestDispatcherRateLimits(t *testing.T) {
	t.Parallel()
	n := &recordingNotifier{}
	cfg := enabledConfig()
	cfg.RatePerSec = 0.001
	cfg.Burst = 1

	d := NewDispatcher(n, cfg)
	d.Notify("token-a", RiskAlert(testHive(1)))
	d.Notify("token-b", RiskAlert(testHive(1)))
	d.Wait()

	assert.Equal(t, 1, n.count())
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	t.Parallel()
	n := &recordingNotifier{fail: true}
	results := &resultLog{}

	d := NewDispatcher(n, enabledConfig())
	d.OnResult(results.hook)
	require.NotPanics(t, func() { d.Notify("device-token", RiskAlert(testHive(1))) })
	d.Wait()

	assert.Equal(t, []string{ResultFailed}, results.all())
}

func TestDispatcherSendTimeout(t *testing.T) {
	t.Parallel()
	n := &recordingNotifier{delay: time.Second}
	results := &resultLog{}
	cfg := enabledConfig()
	cfg.SendTimeout = 10 * time.Millisecond

	d := NewDispatcher(n, cfg)
	d.OnResult(results.hook)
	d.Notify("device-token", RiskAlert(testHive(1)))
	d.Wait()

	assert.Equal(t, []string{ResultFailed}, results.all())
}

func TestMaskToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "****", maskToken("short"))
	assert.Equal(t, "abcd...wxyz", maskToken("abcdefghijklmnopqrstuvwxyz"))
}

func TestDispatcherAlertsAgainAfterReset(t *testing.T) {
	t.Parallel()
	n := &recordingNotifier{}
	d := NewDispatcher(n, enabledConfig())
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	hive := testHive(0)
	hive.ApplyDetection(start)
	d.Notify("device-token", RiskAlert(hive))

	hive.ResetDetections()
	hive.ApplyDetection(start.Add(time.Second))
	d.Notify("device-token", RiskAlert(hive))
	d.Wait()

	assert.Equal(t, 2, n.count(), "count 1 reached twice sends two alerts")
}

func TestDispatcherAlertsAgainAfterReactivation(t *testing.T) {
	t.Parallel()
	n := &recordingNotifier{}
	results := &resultLog{}
	d := NewDispatcher(n, enabledConfig())
	d.OnResult(results.hook)
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	hive := testHive(0)
	hive.Activate(start)
	d.Notify("device-token", HiveDeactivated(hive, 20*time.Minute))
	d.Notify("device-token", HiveDeactivated(hive, 20*time.Minute))

	hive.Activate(start.Add(time.Minute))
	d.Notify("device-token", HiveDeactivated(hive, 20*time.Minute))
	d.Wait()

	assert.Equal(t, 2, n.count())
	assert.ElementsMatch(t, []string{ResultSent, ResultDuplicate, ResultSent}, results.all())
}

func TestShoutrrrNotifierStopsOnCanceledContext(t *testing.T) {
	t.Parallel()
	notifier, err := NewShoutrrrNotifier([]string{"logger://"}, time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = notifier.Send(ctx, "device-token", RiskAlert(testHive(1)))
	assert.ErrorIs(t, err, context.Canceled)
}
