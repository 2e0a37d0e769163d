package arbiter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polybin/internal/actuator"
	"polybin/internal/models"
)

type fakeDriver struct {
	inFlight int32
	maxSeen  int32
	calls    int32
	delay    time.Duration
	err      error
	onMove   func()
}

func (d *fakeDriver) SetAngle(ctx context.Context, axis actuator.Axis, angle int) error {
	n := atomic.AddInt32(&d.inFlight, 1)
	defer atomic.AddInt32(&d.inFlight, -1)
	atomic.AddInt32(&d.calls, 1)
	for {
		seen := atomic.LoadInt32(&d.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&d.maxSeen, seen, n) {
			break
		}
	}
	if d.onMove != nil {
		d.onMove()
	}
	time.Sleep(d.delay)
	return d.err
}

type fakeDebouncer struct{ resets int32 }

func (d *fakeDebouncer) Reset() { atomic.AddInt32(&d.resets, 1) }

type fakeAlerts struct {
	mu      sync.Mutex
	removes []models.WasteCategory
}

func (a *fakeAlerts) PlayRemove(c models.WasteCategory) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removes = append(a.removes, c)
}

type fakeAudit struct {
	mu      sync.Mutex
	records []models.DisposeRecord
}

func (a *fakeAudit) LogDispose(r models.DisposeRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, r)
}

type harness struct {
	driver    *fakeDriver
	debouncer *fakeDebouncer
	alerts    *fakeAlerts
	audit     *fakeAudit
	arbiter   *Arbiter
}

func newHarness(cooldown time.Duration) *harness {
	h := &harness{
		driver:    &fakeDriver{},
		debouncer: &fakeDebouncer{},
		alerts:    &fakeAlerts{},
		audit:     &fakeAudit{},
	}
	act := actuator.New(h.driver, actuator.Config{Cooldown: cooldown})
	h.arbiter = New(act, h.debouncer, h.alerts, h.audit, 13)
	return h
}

func TestDisposeHappyPath(t *testing.T) {
	h := newHarness(2 * time.Second)

	out, err := h.arbiter.TryDispose(context.Background(), models.Recyclable, models.DefaultBinLevels(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: Disposed, Category: models.Recyclable}, out)

	assert.Equal(t, int32(3), atomic.LoadInt32(&h.driver.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.debouncer.resets))
	require.Len(t, h.audit.records, 1)
	assert.Equal(t, "Recyclable", h.audit.records[0].BinType)
	assert.Empty(t, h.alerts.removes)
}

func TestCooldownEnforcement(t *testing.T) {
	h := newHarness(2 * time.Second)
	now := time.Now()
	levels := models.DefaultBinLevels()

	first, err := h.arbiter.TryDispose(context.Background(), models.Biodegradable, levels, now)
	require.NoError(t, err)
	assert.Equal(t, Disposed, first.Kind)

	second, err := h.arbiter.TryDispose(context.Background(), models.Hazardous, levels, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: RejectedCooldown}, second)

	third, err := h.arbiter.TryDispose(context.Background(), models.Biodegradable, levels, now.Add(1500*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, RejectedCooldown, third.Kind)

	assert.Equal(t, int32(3), atomic.LoadInt32(&h.driver.calls), "only the first attempt moved the servos")
}

func TestFullBinShortCircuit(t *testing.T) {
	h := newHarness(2 * time.Second)
	levels := models.DefaultBinLevels()
	levels[models.NonBiodegradable] = 13

	out, err := h.arbiter.TryDispose(context.Background(), models.NonBiodegradable, levels, time.Now())
	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: RejectedFull, Category: models.NonBiodegradable}, out)

	assert.Equal(t, int32(0), atomic.LoadInt32(&h.driver.calls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&h.debouncer.resets), "confirmation persists while the bin is full")
	assert.Equal(t, []models.WasteCategory{models.NonBiodegradable}, h.alerts.removes)
	assert.Empty(t, h.audit.records)
}

func TestFullBinDoesNotBlockOtherBins(t *testing.T) {
	h := newHarness(0)
	levels := models.DefaultBinLevels()
	levels[models.Hazardous] = 5

	out, err := h.arbiter.TryDispose(context.Background(), models.Recyclable, levels, time.Now())
	require.NoError(t, err)
	assert.Equal(t, Disposed, out.Kind)
}

func TestFailedMotion(t *testing.T) {
	h := newHarness(2 * time.Second)
	h.driver.err = errors.New("pwm write failed")

	now := time.Now()
	out, err := h.arbiter.TryDispose(context.Background(), models.Hazardous, models.DefaultBinLevels(), now)
	require.Error(t, err)
	assert.ErrorIs(t, err, actuator.ErrMotionFailed)
	assert.Equal(t, Outcome{Kind: Failed, Category: models.Hazardous}, out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.driver.calls), "remaining steps aborted")
	assert.Empty(t, h.audit.records)

	h.driver.err = nil
	again, err := h.arbiter.TryDispose(context.Background(), models.Hazardous, models.DefaultBinLevels(), now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, RejectedCooldown, again.Kind, "no immediate retry of a failed motion")
}

func TestConcurrentSubmissionsSerialize(t *testing.T) {
	h := newHarness(0)
	h.driver.delay = 5 * time.Millisecond
	now := time.Now()

	var wg sync.WaitGroup
	var disposed int32
	for _, c := range []models.WasteCategory{models.Biodegradable, models.Hazardous} {
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(c models.WasteCategory) {
				defer wg.Done()
				out, err := h.arbiter.TryDispose(context.Background(), c, models.DefaultBinLevels(), now)
				assert.NoError(t, err)
				if out.Kind == Disposed {
					atomic.AddInt32(&disposed, 1)
				}
			}(c)
		}
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&h.driver.maxSeen), "at most one servo move in flight")
	assert.Equal(t, int32(6), disposed)
}

func TestConcurrentSubmissionsWithinCooldown(t *testing.T) {
	h := newHarness(time.Minute)
	now := time.Now()

	var wg sync.WaitGroup
	var disposed, cooling int32
	for _, c := range models.AllCategories {
		wg.Add(1)
		go func(c models.WasteCategory) {
			defer wg.Done()
			out, _ := h.arbiter.TryDispose(context.Background(), c, models.DefaultBinLevels(), now)
			switch out.Kind {
			case Disposed:
				atomic.AddInt32(&disposed, 1)
			case RejectedCooldown:
				atomic.AddInt32(&cooling, 1)
			}
		}(c)
	}
	wg.Wait()

	assert.Equal(t, int32(1), disposed)
	assert.Equal(t, int32(3), cooling)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "disposed(Recyclable)", Outcome{Kind: Disposed, Category: models.Recyclable}.String())
	assert.Equal(t, "rejected_cooldown", Outcome{Kind: RejectedCooldown}.String())
}

func TestInvalidCategoryIsFailed(t *testing.T) {
	h := newHarness(0)

	out, err := h.arbiter.TryDispose(context.Background(), models.WasteCategory(42), models.DefaultBinLevels(), time.Now())
	require.Error(t, err)
	assert.Equal(t, Failed, out.Kind)
	assert.NotEqual(t, Disposed, Outcome{}.Kind)
	assert.Equal(t, int32(0), atomic.LoadInt32(&h.driver.calls))
}

func TestQueuedCallJudgedWhenItRuns(t *testing.T) {
	h := newHarness(time.Second)

	var mu sync.Mutex
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	start := clock
	h.arbiter.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}

	moving := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.driver.onMove = func() {
		once.Do(func() {
			close(moving)
			<-release
		})
		mu.Lock()
		clock = clock.Add(400 * time.Millisecond)
		mu.Unlock()
	}

	first := make(chan Outcome, 1)
	go func() {
		out, err := h.arbiter.TryDispose(context.Background(), models.Biodegradable, models.DefaultBinLevels(), time.Time{})
		assert.NoError(t, err)
		first <- out
	}()
	<-moving

	second := make(chan Outcome, 1)
	go func() {
		out, err := h.arbiter.TryDispose(context.Background(), models.Recyclable, models.DefaultBinLevels(), time.Time{})
		assert.NoError(t, err)
		second <- out
	}()
	close(release)

	assert.Equal(t, Disposed, (<-first).Kind)
	assert.Equal(t, Outcome{Kind: Disposed, Category: models.Recyclable}, <-second)

	h.audit.mu.Lock()
	defer h.audit.mu.Unlock()
	require.Len(t, h.audit.records, 2)
	assert.Equal(t, start, h.audit.records[0].Timestamp)
	assert.Equal(t, start.Add(1200*time.Millisecond), h.audit.records[1].Timestamp)
}
