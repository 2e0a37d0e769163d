package alert

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polybin/internal/models"
)

type fakeBackend struct {
	mu      sync.Mutex
	initErr error
	inits   int
	played  []string
	block   chan struct{} // when set, Play waits on it
	started chan string
}

func (b *fakeBackend) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inits++
	return b.initErr
}

func (b *fakeBackend) Play(ctx context.Context, file string) error {
	if b.started != nil {
		b.started <- file
	}
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	b.played = append(b.played, filepath.Base(file))
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) files() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.played...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RepeatPause = time.Millisecond
	cfg.InitBackoff = time.Millisecond
	return cfg
}

func startPlayer(t *testing.T, cfg Config, backend Backend) (*Player, func()) {
	t.Helper()
	p := NewPlayer(cfg, backend, SoundLibrary{Dir: "/sounds"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()
	return p, func() {
		cancel()
		<-done
	}
}

// deliver hands a cue to the worker, waiting until it is ready to receive
func deliver(t *testing.T, p *Player, cue Cue) {
	t.Helper()
	select {
	case p.requests <- cue:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not accept cue")
	}
}

func TestStandardCueSequence(t *testing.T) {
	backend := &fakeBackend{}
	p, stop := startPlayer(t, testConfig(), backend)
	defer stop()

	deliver(t, p, Cue{Kind: Standard, Category: models.Recyclable})
	require.Eventually(t, func() bool { return len(backend.files()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"recyclable.mp3", PleaseEmptySound}, backend.files())
	assert.True(t, p.Enabled())
}

func TestRemoveCuePlaysTwice(t *testing.T) {
	backend := &fakeBackend{}
	p, stop := startPlayer(t, testConfig(), backend)
	defer stop()

	deliver(t, p, Cue{Kind: Remove, Category: models.Hazardous})
	require.Eventually(t, func() bool { return len(backend.files()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"hazardous.mp3", RemoveSound, "hazardous.mp3", RemoveSound}, backend.files())
}

func TestCooldownBucketsAreIndependent(t *testing.T) {
	backend := &fakeBackend{}
	p, stop := startPlayer(t, testConfig(), backend)
	defer stop()

	deliver(t, p, Cue{Kind: Standard, Category: models.Biodegradable})
	deliver(t, p, Cue{Kind: Standard, Category: models.Hazardous}) // same bucket, suppressed
	deliver(t, p, Cue{Kind: Remove, Category: models.Biodegradable})
	deliver(t, p, Cue{Kind: Remove, Category: models.Biodegradable}) // suppressed

	require.Eventually(t, func() bool { return len(backend.files()) == 6 }, time.Second, 5*time.Millisecond)
	// the fifth delivery only lands once the worker is idle again
	deliver(t, p, Cue{Kind: Standard, Category: models.Recyclable})

	played, _ := p.Stats()
	assert.Equal(t, int64(2), played)
	assert.NotContains(t, backend.files(), "hazardous.mp3")
	assert.NotContains(t, backend.files(), "recyclable.mp3")
}

func TestRequestsWhileBusyAreDropped(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{}), started: make(chan string, 8)}
	p, stop := startPlayer(t, testConfig(), backend)
	defer stop()

	deliver(t, p, Cue{Kind: Standard, Category: models.Biodegradable})
	<-backend.started

	p.PlayRemove(models.Recyclable)
	p.PlayAlert(models.Hazardous)
	_, dropped := p.Stats()
	assert.Equal(t, int64(2), dropped)

	close(backend.block)
	require.Eventually(t, func() bool { return len(backend.files()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"biodegradable.mp3", PleaseEmptySound}, backend.files())
}

func TestInitFailureDisablesAudio(t *testing.T) {
	backend := &fakeBackend{initErr: errors.New("no audio device")}
	cfg := testConfig()
	cfg.InitAttempts = 3
	p, stop := startPlayer(t, cfg, backend)
	defer stop()

	deliver(t, p, Cue{Kind: Standard, Category: models.Biodegradable})
	deliver(t, p, Cue{Kind: Remove, Category: models.Biodegradable})

	assert.False(t, p.Enabled())
	assert.Empty(t, backend.files())
	backend.mu.Lock()
	assert.Equal(t, 3, backend.inits)
	backend.mu.Unlock()
}

func TestSoundLibrary(t *testing.T) {
	lib := SoundLibrary{Dir: "/opt/sounds"}
	path, err := lib.Category(models.NonBiodegradable)
	require.NoError(t, err)
	assert.Equal(t, "/opt/sounds/non_biodegradable.mp3", path)

	_, err = lib.Category(models.WasteCategory(9))
	assert.Error(t, err)

	assert.Len(t, SoundLibrary{Dir: t.TempDir()}.Missing(), 6)
}
