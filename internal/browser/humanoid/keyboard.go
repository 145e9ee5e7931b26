package humanoid

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

// -- commonNgrams contains common letter combinations to simulate rhythmic typing --
var commonNgrams = map[string]bool{
	"th": true, "he": true, "in": true, "er": true, "an": true, "re": true,
	"es": true, "on": true, "st": true, "nt": true, "or": true, "co": true,
	"the": true, "and": true, "ing": true, "ion": true, "tio": true, "com": true,
}

// Type types text into the focused element one character at a time. Words
// are typed in fast bursts with longer pauses between them. Text is always
// delivered exactly: there is no typo simulation.
func (h *Humanoid) Type(ctx context.Context, text string) error {
	if !h.cfg.Enabled {
		return h.executor.SendKeys(ctx, text)
	}

	// Pause after focusing to simulate cognitive planning.
	if err := h.CognitivePause(ctx, 200, 80); err != nil {
		return err
	}

	runes := []rune(text)
	for i, r := range runes {
		if err := ctx.Err(); err != nil {
			return err
		}

		speed := h.cfg.BurstSpeedFactor
		if i > 0 && unicode.IsSpace(runes[i-1]) {
			// First key of a new word: locate it before typing.
			if err := h.wordPause(ctx, runes, i); err != nil {
				return err
			}
			speed = 1.0
		}
		if err := h.keyPause(ctx, speed, runes, i); err != nil {
			return err
		}
		if err := h.sendString(ctx, string(r)); err != nil {
			return fmt.Errorf("humanoid: failed to send key '%c': %w", r, err)
		}
	}
	return nil
}

// wordPause is the inter-word pause, slightly longer for long next words.
func (h *Humanoid) wordPause(ctx context.Context, runes []rune, start int) error {
	end := start
	for end < len(runes) && !unicode.IsSpace(runes[end]) {
		end++
	}
	h.mu.Lock()
	jitter := h.rng.Float64() * 80
	h.mu.Unlock()
	pauseMs := 100 + float64(end-start)*5 + jitter
	return h.CognitivePause(ctx, pauseMs, pauseMs*0.4)
}

// sendString dispatches keys and then waits for the key dwell time.
func (h *Humanoid) sendString(ctx context.Context, keys string) error {
	if err := h.executor.SendKeys(ctx, keys); err != nil {
		return err
	}
	return h.executor.Sleep(ctx, h.keyHoldDuration())
}

func (h *Humanoid) keyHoldDuration() time.Duration {
	h.mu.Lock()
	randNorm := h.rng.NormFloat64()
	h.mu.Unlock()

	delay := randNorm*h.cfg.KeyHoldStdDev + h.cfg.KeyHoldMean
	if delay < 20.0 {
		delay = 20.0
	}
	return time.Duration(delay) * time.Millisecond
}

// keyPause introduces the inter-key delay (IKD) before runes[index].
func (h *Humanoid) keyPause(ctx context.Context, speedFactor float64, runes []rune, index int) error {
	h.mu.Lock()
	randNorm := h.rng.NormFloat64()
	h.mu.Unlock()

	mean := h.cfg.KeyPauseMean * speedFactor
	stdDev := h.cfg.KeyPauseStdDev * speedFactor
	minDelay := h.cfg.KeyPauseMin * speedFactor
	ngramFactor := 1.0

	if index > 1 && commonNgrams[strings.ToLower(string(runes[index-2:index+1]))] {
		ngramFactor = h.cfg.KeyPauseNgramFactor3
	} else if index > 0 && commonNgrams[strings.ToLower(string(runes[index-1:index+1]))] {
		ngramFactor = h.cfg.KeyPauseNgramFactor2
	}
	mean *= ngramFactor
	minDelay *= ngramFactor

	delay := math.Max(minDelay, randNorm*stdDev+mean)
	return h.executor.Sleep(ctx, time.Duration(delay)*time.Millisecond)
}
