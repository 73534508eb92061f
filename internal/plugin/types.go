// Package plugin discovers and runs notification plugins. Plugins are
// standalone executables living under the plugin directory, each described by
// a plugin.json manifest. When an alert rule fires, the bound plugin action
// receives the alert payload as JSON on stdin and replies on stdout.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is sent to a plugin for execution. Alert carries the serialized
// alert that triggered the notification; Config is the per-notification
// configuration stored with the rule binding.
type Request struct {
	Action string          `json:"action"`
	Alert  json.RawMessage `json:"alert"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
