// Package alert plays audio cues for full bins. One worker plays at most one
// cue at a time; requests arriving while it is busy are dropped.
package alert

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"polybin/internal/cooldown"
	"polybin/internal/models"
)

const (
	DefaultStandardCooldown = 300 * time.Second
	DefaultRemoveCooldown   = 30 * time.Second
	DefaultRepeatPause      = 1 * time.Second
	DefaultInitAttempts     = 3
)

// Kind selects the cue variant and its cooldown bucket
type Kind int

const (
	Standard Kind = iota
	Remove
)

func (k Kind) String() string {
	if k == Remove {
		return "remove"
	}
	return "standard"
}

// Cue is a single playback request
type Cue struct {
	Kind     Kind
	Category models.WasteCategory
}

// Config holds player timings
type Config struct {
	StandardCooldown time.Duration
	RemoveCooldown   time.Duration
	RepeatPause      time.Duration // between the two plays of a remove cue
	InitAttempts     int
	InitBackoff      time.Duration
}

// DefaultConfig returns the default player timings
func DefaultConfig() Config {
	return Config{
		StandardCooldown: DefaultStandardCooldown,
		RemoveCooldown:   DefaultRemoveCooldown,
		RepeatPause:      DefaultRepeatPause,
		InitAttempts:     DefaultInitAttempts,
		InitBackoff:      500 * time.Millisecond,
	}
}

// Player is the single audio worker. Construct one at startup and share it.
type Player struct {
	cfg      Config
	backend  Backend
	sounds   SoundLibrary
	cooldown *cooldown.Clock
	now      func() time.Time

	requests chan Cue
	enabled  atomic.Bool
	played   atomic.Int64
	dropped  atomic.Int64
}

// NewPlayer creates a player. Start must run before cues are accepted.
func NewPlayer(cfg Config, backend Backend, sounds SoundLibrary) *Player {
	c := cooldown.New(0)
	c.SetDuration(Standard.String(), cfg.StandardCooldown)
	c.SetDuration(Remove.String(), cfg.RemoveCooldown)
	return &Player{
		cfg:      cfg,
		backend:  backend,
		sounds:   sounds,
		cooldown: c,
		now:      time.Now,
		requests: make(chan Cue),
	}
}

// PlayAlert requests the full-bin cue for category
func (p *Player) PlayAlert(category models.WasteCategory) {
	p.enqueue(Cue{Kind: Standard, Category: category})
}

// PlayRemove requests the "please remove" cue for category
func (p *Player) PlayRemove(category models.WasteCategory) {
	p.enqueue(Cue{Kind: Remove, Category: category})
}

func (p *Player) enqueue(cue Cue) {
	select {
	case p.requests <- cue:
	default:
		p.dropped.Add(1)
		log.Printf("AlertPlayer: busy, dropping %s cue for %s", cue.Kind, cue.Category)
	}
}

// Start initializes the backend and runs the worker until ctx is done.
// If the backend never initializes, requests are consumed and discarded.
func (p *Player) Start(ctx context.Context) {
	log.Println("AlertPlayer: starting")

	if err := p.initBackend(ctx); err != nil {
		log.Printf("AlertPlayer: audio disabled: %v", err)
	} else {
		p.enabled.Store(true)
		if missing := p.sounds.Missing(); len(missing) > 0 {
			log.Printf("AlertPlayer: Warning: missing sound files in %s: %v", p.sounds.Dir, missing)
		}
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("AlertPlayer: stopping")
			return
		case cue := <-p.requests:
			if !p.enabled.Load() {
				continue
			}
			p.handle(ctx, cue)
		}
	}
}

func (p *Player) initBackend(ctx context.Context) error {
	attempts := p.cfg.InitAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := p.cfg.InitBackoff

	var err error
	for i := 1; i <= attempts; i++ {
		if err = p.backend.Init(ctx); err == nil {
			return nil
		}
		log.Printf("AlertPlayer: init attempt %d/%d failed: %v", i, attempts, err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

func (p *Player) handle(ctx context.Context, cue Cue) {
	if !p.cooldown.TryFire(cue.Kind.String(), p.now()) {
		log.Printf("AlertPlayer: %s cue for %s suppressed by cooldown", cue.Kind, cue.Category)
		return
	}

	sequence, err := p.sequence(cue)
	if err != nil {
		log.Printf("AlertPlayer: %v", err)
		return
	}

	log.Printf("AlertPlayer: playing %s cue for %s", cue.Kind, cue.Category)
	for i, file := range sequence {
		if file == "" {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.RepeatPause):
			}
			continue
		}
		if err := p.backend.Play(ctx, file); err != nil {
			log.Printf("AlertPlayer: failed at step %d: %v", i, err)
			return
		}
	}
	p.played.Add(1)
}

// sequence returns the files for a cue; an empty entry is a pause
func (p *Player) sequence(cue Cue) ([]string, error) {
	category, err := p.sounds.Category(cue.Category)
	if err != nil {
		return nil, err
	}
	switch cue.Kind {
	case Remove:
		remove := p.sounds.File(RemoveSound)
		return []string{category, remove, "", category, remove}, nil
	default:
		return []string{category, p.sounds.File(PleaseEmptySound)}, nil
	}
}

// Enabled reports whether audio output initialized
func (p *Player) Enabled() bool {
	return p.enabled.Load()
}

// Stats returns the number of cues played and dropped while busy
func (p *Player) Stats() (played, dropped int64) {
	return p.played.Load(), p.dropped.Load()
}
