package app

import (
	"time"
)

// runPipeline is the frame loop. It owns the gate and is the only caller of
// Observe while the app is running.
//
// Each tick:
//  1. read a frame (skipped while disabled)
//  2. feed it to the motion gate; retime the ticker when the mode changes
//  3. in active mode run landmark detection and classify contact
//  4. in idle mode reuse the last contact observation
//  5. step the escalation and deliver any alert
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(frameInterval(a.gate.FPS()))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			if a.tick() {
				fps := a.gate.FPS()
				a.Camera().SetFPS(fps)
				ticker.Reset(frameInterval(fps))
			}
		}
	}
}

// tick processes one frame and reports whether the pacing mode changed.
func (a *App) tick() bool {
	frame, err := a.Camera().ReadFrame()
	if err != nil {
		a.log.Warn().Err(err).Msg("error reading frame")
		return false
	}
	defer frame.Close()

	now := a.config.Clock()
	d := a.gate.Observe(frame, now)
	if d.Changed {
		a.setMode(d.Mode)
		a.log.Debug().Str("mode", d.Mode.String()).Float64("change", d.Change).Msg("capture mode switched")
	}

	if !d.Infer() {
		a.frameMu.Lock()
		contact := a.lastContact
		a.frameMu.Unlock()
		a.Observe(contact, now)
		return d.Changed
	}

	det, err := a.Detector().Detect(frame)
	if err != nil {
		a.log.Warn().Err(err).Msg("landmark detection failed")
		a.Observe(false, now)
		return d.Changed
	}

	a.ProcessFrame(det, now)
	return d.Changed
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}
