package views

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(44100)

	correctTone = 880.0
	wrongTone   = 220.0
	toneLength  = 120 * time.Millisecond
	toneGap     = 60 * time.Millisecond
)

// Sound plays a short tone per answer slot: high for correct, low for wrong.
type Sound struct {
	rate beep.SampleRate
}

// NewSound opens the default audio device.
func NewSound() (*Sound, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return &Sound{rate: sampleRate}, nil
}

// Feedback queues the two tones and returns without waiting for them.
func (s *Sound) Feedback(correct [2]bool) {
	seq, err := s.feedbackStream(correct)
	if err != nil {
		return
	}
	speaker.Play(seq)
}

func (s *Sound) feedbackStream(correct [2]bool) (beep.Streamer, error) {
	var parts []beep.Streamer
	for i, ok := range correct {
		freq := wrongTone
		if ok {
			freq = correctTone
		}
		tone, err := generators.SineTone(s.rate, freq)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			pause := &effects.Volume{Streamer: tone, Base: 2, Silent: true}
			parts = append(parts, beep.Take(s.rate.N(toneGap), pause))
		}
		parts = append(parts, beep.Take(s.rate.N(toneLength), tone))
	}
	return beep.Seq(parts...), nil
}

// Close stops playback and releases the device.
func (s *Sound) Close() {
	speaker.Clear()
	speaker.Close()
}
