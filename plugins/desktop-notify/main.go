// Package main provides a desktop notification plugin.
// It shows the alert as a desktop notification using notify-send on Linux
// and osascript on macOS.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Alert  json.RawMessage `json:"alert"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// AlertPayload is the subset of the alert we render in the notification.
type AlertPayload struct {
	RuleName   string  `json:"rule_name"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func main() {
	// Read request from stdin
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "notify":
		if err := handleNotify(req.Alert); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	writeSuccessResponse()
}

// handleNotify renders the alert as a desktop notification.
func handleNotify(alert json.RawMessage) error {
	var payload AlertPayload
	if len(alert) > 0 {
		if err := json.Unmarshal(alert, &payload); err != nil {
			return fmt.Errorf("failed to parse alert: %w", err)
		}
	}

	if payload.Label == "" {
		return fmt.Errorf("alert label is required")
	}

	title := fmt.Sprintf("Camera alert: %s", payload.Label)
	body := fmt.Sprintf("%s detected (%.0f%% confidence)", payload.Label, payload.Confidence*100)
	if payload.RuleName != "" {
		body = fmt.Sprintf("Rule %q: %s", payload.RuleName, body)
	}

	return showNotification(title, body)
}

// showNotification invokes the platform notification command.
func showNotification(title, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, body, title)
		cmd = exec.Command("osascript", "-e", script)
	case "linux":
		cmd = exec.Command("notify-send", "--urgency=critical", title, body)
	default:
		return fmt.Errorf("desktop notifications not supported on %s", runtime.GOOS)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	resp := Response{
		Success: true,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
