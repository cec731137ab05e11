package alert

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"time"
)

const (
	sampleRate    = 44100
	toneFrequency = 880.0
	toneDuration  = 200 * time.Millisecond
	toneAmplitude = 0.3
)

var defaultPlayers = []string{"paplay", "aplay", "afplay"}

// Tone plays a short sine beep through an external audio player.
type Tone struct {
	// Players lists candidate player binaries, first found wins.
	Players []string
	Timeout time.Duration

	lookPath func(string) (string, error)
}

// Alert implements Alerter.
func (t Tone) Alert() error {
	player, err := t.findPlayer()
	if err != nil {
		return err
	}
	f, err := os.CreateTemp("", "impromptu-beep-*.wav")
	if err != nil {
		return fmt.Errorf("create beep file: %w", err)
	}
	path := f.Name()
	defer func() {
		_ = os.Remove(path)
	}()
	if _, err := f.Write(BeepWAV()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write beep file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close beep file: %w", err)
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := exec.CommandContext(ctx, player, path).Run(); err != nil {
		return fmt.Errorf("play beep with %s: %w", player, err)
	}
	return nil
}

func (t Tone) findPlayer() (string, error) {
	lookPath := t.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	players := t.Players
	if len(players) == 0 {
		players = defaultPlayers
	}
	for _, name := range players {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrUnsupported
}

// BeepWAV returns a mono 16-bit PCM WAV of the alert tone.
func BeepWAV() []byte {
	samples := int(float64(sampleRate) * toneDuration.Seconds())
	dataLen := samples * 2

	var buf bytes.Buffer
	buf.Grow(44 + dataLen)
	buf.WriteString("RIFF")
	writeLE(&buf, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	writeLE(&buf, uint32(16))
	writeLE(&buf, uint16(1)) // PCM
	writeLE(&buf, uint16(1)) // mono
	writeLE(&buf, uint32(sampleRate))
	writeLE(&buf, uint32(sampleRate*2))
	writeLE(&buf, uint16(2))
	writeLE(&buf, uint16(16))
	buf.WriteString("data")
	writeLE(&buf, uint32(dataLen))

	fade := samples / 20
	for i := 0; i < samples; i++ {
		env := 1.0
		if i < fade {
			env = float64(i) / float64(fade)
		} else if i > samples-fade {
			env = float64(samples-i) / float64(fade)
		}
		v := math.Sin(2*math.Pi*toneFrequency*float64(i)/sampleRate) * toneAmplitude * env
		writeLE(&buf, int16(v*math.MaxInt16))
	}
	return buf.Bytes()
}

func writeLE(buf *bytes.Buffer, v any) {
	// bytes.Buffer writes never fail.
	_ = binary.Write(buf, binary.LittleEndian, v)
}
