// Package main provides the macOS alert plugin for Hands Off.
// It shows a notification banner and plays a sound via osascript and afplay,
// speaks angry alerts aloud and raises a modal dialog for terminal ones.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Title     string          `json:"title"`
	Severity  string          `json:"severity"`
	Message   string          `json:"message"`
	Stage     int             `json:"stage"`
	ElapsedMs int64           `json:"elapsed_ms"`
	Terminal  bool            `json:"terminal"`
	Config    json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Settings is the optional config block from plugin.json.
type Settings struct {
	Sound string `json:"sound"`
	Voice string `json:"voice"`
	Mute  bool   `json:"mute"`
}

const soundDir = "/System/Library/Sounds"

// severityHandler delivers one alert.
type severityHandler func(req Request, s Settings) error

var severityHandlers = map[string]severityHandler{
	"mild":     notifyMild,
	"angry":    notifyAngry,
	"terminal": notifyTerminal,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := severityHandlers[req.Severity]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown severity: %s", req.Severity))
		return
	}

	settings := Settings{Sound: "Sosumi"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &settings); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}
	if req.Title == "" {
		req.Title = "Warning"
	}

	if err := handler(req, settings); err != nil {
		writeErrorResponse(fmt.Sprintf("%s alert failed: %v", req.Severity, err))
		return
	}

	writeSuccessResponse(req.Severity)
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}

func writeSuccessResponse(severity string) {
	data, _ := json.Marshal(map[string]string{"delivered": severity})
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: true,
		Data:    data,
	})
}

func notifyMild(req Request, s Settings) error {
	if err := banner(req); err != nil {
		return err
	}
	return playSound(s)
}

func notifyAngry(req Request, s Settings) error {
	if err := notifyMild(req, s); err != nil {
		return err
	}
	if s.Mute {
		return nil
	}
	args := []string{req.Message}
	if s.Voice != "" {
		args = append([]string{"-v", s.Voice}, args...)
	}
	return detach("say", args...)
}

func notifyTerminal(req Request, s Settings) error {
	if err := playSound(s); err != nil {
		return err
	}
	script := fmt.Sprintf(`display dialog %s with title %s buttons {"OK"} default button "OK" with icon stop giving up after 30`,
		quote(req.Message), quote(req.Title))
	// The dialog stays up until dismissed; the executor must not wait on it.
	return detach("osascript", "-e", script)
}

func banner(req Request) error {
	script := fmt.Sprintf(`display notification %s with title %s`, quote(req.Message), quote(req.Title))
	return runAppleScript(script)
}

func playSound(s Settings) error {
	if s.Mute || s.Sound == "" {
		return nil
	}
	return run("afplay", soundDir+"/"+s.Sound+".aiff")
}

// quote renders s as an AppleScript string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func runAppleScript(script string) error {
	return run("osascript", "-e", script)
}

// detach starts a long-running command and returns without waiting. Its
// stdio is left unset so it holds none of the executor's pipes.
func detach(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return cmd.Process.Release()
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
