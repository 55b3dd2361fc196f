package capture

import (
	"time"

	"gocv.io/x/gocv"
)

// Mode is the capture pacing mode.
type Mode int

const (
	// ModeIdle samples slowly and skips inference.
	ModeIdle Mode = iota
	// ModeActive samples fast and runs inference on every frame.
	ModeActive
)

func (m Mode) String() string {
	if m == ModeActive {
		return "active"
	}
	return "idle"
}

// GateConfig configures the motion gate.
type GateConfig struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration
	// Threshold is the changed-pixel percentage that counts as motion.
	// Zero or less disables the gate: every frame is active.
	Threshold float64
}

// DefaultGateConfig returns 5 fps idle, 15 fps active and a 2s idle timeout.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		IdleFPS:     5,
		ActiveFPS:   15,
		IdleTimeout: 2 * time.Second,
		Threshold:   DefaultMotionThreshold,
	}
}

// Decision is the gate's verdict for one frame.
type Decision struct {
	Mode    Mode
	Motion  bool
	Change  float64
	Changed bool
}

// Infer reports whether the frame should go through landmark inference.
func (d Decision) Infer() bool {
	return d.Mode == ModeActive
}

// Gate switches to active mode on motion and back to idle once no motion
// has been seen for IdleTimeout. It is not safe for concurrent use.
type Gate struct {
	cfg        GateConfig
	motion     *MotionDetector
	mode       Mode
	lastMotion time.Time
}

// NewGate returns a gate in idle mode, or permanently active when the
// threshold is non-positive.
func NewGate(cfg GateConfig) *Gate {
	def := DefaultGateConfig()
	if cfg.IdleFPS <= 0 {
		cfg.IdleFPS = def.IdleFPS
	}
	if cfg.ActiveFPS <= 0 {
		cfg.ActiveFPS = def.ActiveFPS
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}

	g := &Gate{cfg: cfg}
	if cfg.Threshold > 0 {
		g.motion = NewMotionDetector(cfg.Threshold)
	} else {
		g.mode = ModeActive
	}
	return g
}

// Enabled reports whether frames are actually filtered.
func (g *Gate) Enabled() bool {
	return g.motion != nil
}

// Mode returns the current mode.
func (g *Gate) Mode() Mode {
	return g.mode
}

// FPS returns the frame rate for the current mode.
func (g *Gate) FPS() int {
	if g.mode == ModeActive {
		return g.cfg.ActiveFPS
	}
	return g.cfg.IdleFPS
}

// Observe feeds one frame captured at now.
func (g *Gate) Observe(frame *gocv.Mat, now time.Time) Decision {
	if g.motion == nil {
		return Decision{Mode: ModeActive, Motion: true}
	}

	moved, change := g.motion.Detect(frame)
	return g.advance(moved, change, now)
}

// advance applies one motion observation to the mode.
func (g *Gate) advance(moved bool, change float64, now time.Time) Decision {
	d := Decision{Motion: moved, Change: change}

	switch {
	case moved:
		g.lastMotion = now
		if g.mode != ModeActive {
			g.mode = ModeActive
			d.Changed = true
		}
	case g.mode == ModeActive && now.Sub(g.lastMotion) > g.cfg.IdleTimeout:
		g.mode = ModeIdle
		d.Changed = true
	}

	d.Mode = g.mode
	return d
}

// Reset returns the gate to idle and drops the motion baseline.
func (g *Gate) Reset() {
	if g.motion == nil {
		return
	}
	g.motion.Reset()
	g.mode = ModeIdle
	g.lastMotion = time.Time{}
}

// Close releases the motion baseline.
func (g *Gate) Close() {
	if g.motion != nil {
		g.motion.Close()
	}
}
