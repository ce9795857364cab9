// Package audio plays a short tone when the emitter bounces.
package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	cueLength   = 60 * time.Millisecond
	cueVolume   = .25
	cuesPerSec  = 8
	bufferAhead = time.Second / 10
)

// Bouncer plays the bounce cue through the system speaker. Cues are rate
// limited so an emitter resting on the floor does not drone.
type Bouncer struct {
	mu          sync.Mutex
	sr          beep.SampleRate
	freq        float64
	mixer       *beep.Mixer
	limiter     *rate.Limiter
	initialized bool
	log         *zap.Logger
}

// NewBouncer creates a bouncer for the given sample rate and tone frequency
func NewBouncer(sampleRate int, freq float64, log *zap.Logger) (*Bouncer, error) {
	sr := beep.SampleRate(sampleRate)
	if _, err := generators.SineTone(sr, freq); err != nil {
		return nil, fmt.Errorf("bounce tone: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bouncer{
		sr:      sr,
		freq:    freq,
		mixer:   &beep.Mixer{},
		limiter: rate.NewLimiter(rate.Limit(cuesPerSec), 1),
		log:     log,
	}, nil
}

// Initialize opens the speaker
func (b *Bouncer) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}
	if err := speaker.Init(b.sr, b.sr.N(bufferAhead)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(b.mixer)
	b.initialized = true
	b.log.Debug("speaker ready", zap.Int("sample_rate", int(b.sr)))
	return nil
}

// Play queues one bounce cue unless the rate limit is exhausted
func (b *Bouncer) Play() {
	if !b.limiter.Allow() {
		return
	}
	cue, err := Cue(b.sr, b.freq, cueLength)
	if err != nil {
		b.log.Debug("bounce cue", zap.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		speaker.Lock()
		defer speaker.Unlock()
	}
	b.mixer.Add(cue)
}

// Pending returns the number of cues still playing
func (b *Bouncer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		speaker.Lock()
		defer speaker.Unlock()
	}
	return b.mixer.Len()
}

// Close silences pending cues and releases the speaker
func (b *Bouncer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		b.mixer.Clear()
		return
	}
	speaker.Clear()
	speaker.Close()
	b.mixer.Clear()
	b.initialized = false
}

// Cue builds a sine tone of length d, attenuated to cueVolume
func Cue(sr beep.SampleRate, freq float64, d time.Duration) (beep.Streamer, error) {
	tone, err := generators.SineTone(sr, freq)
	if err != nil {
		return nil, err
	}
	return &effects.Volume{
		Streamer: beep.Take(sr.N(d), tone),
		Base:     2,
		Volume:   math.Log2(cueVolume),
	}, nil
}
