// Package audio services AudioSource playback requests through the
// beep speaker. Initialization failure is non-fatal: the runtime keeps
// going without sound.
package audio

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"

	"github.com/clokk/bonkgo/engine"
)

const sampleRate = beep.SampleRate(44100)

// Player drains pending AudioSource requests once per frame
type Player struct {
	log   *zap.Logger
	ready bool
}

// NewPlayer initializes the speaker. On failure the player stays mute.
func NewPlayer(log *zap.Logger) *Player {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Player{log: log}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		log.Warn("audio init failed, continuing without sound", zap.Error(err))
		return p
	}
	p.ready = true
	return p
}

// Update plays every queued request in the scene. Called once per frame
// after the update phases.
func (p *Player) Update(scene *engine.Scene) {
	for _, root := range scene.Roots() {
		p.visit(root)
	}
}

func (p *Player) visit(e *engine.Entity) {
	if src, ok := engine.ComponentOf[*engine.AudioSource](e); ok {
		if src.TakePending() && p.ready && src.Enabled() {
			p.play(src)
		}
	}
	for _, child := range e.Children() {
		p.visit(child)
	}
}

func (p *Player) play(src *engine.AudioSource) {
	freq := src.Freq
	if freq <= 0 {
		freq = 440
	}
	duration := src.Duration
	if duration <= 0 {
		duration = 0.05
	}

	tone, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		p.log.Warn("tone generation failed", zap.Error(err))
		return
	}

	var streamer beep.Streamer
	if src.Loop {
		streamer = beep.Loop(-1, tone)
	} else {
		streamer = beep.Take(sampleRate.N(time.Duration(duration*float64(time.Second))), tone)
	}
	if src.Volume > 0 && src.Volume < 1 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   (src.Volume - 1) * 4,
		}
	}
	speaker.Play(streamer)
}
