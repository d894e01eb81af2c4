package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type PowerState string

const (
	PowerOn  PowerState = "on"
	PowerOff PowerState = "off"
)

// IsOn reports whether the state reads as powered on. The backend is not
// consistent about casing ("on" vs "ON").
func (p PowerState) IsOn() bool {
	return strings.EqualFold(strings.TrimSpace(string(p)), string(PowerOn))
}

// Inverse returns the action that flips the displayed state. Anything that
// is not "on" (including "UNKNOWN") is treated as off.
func (p PowerState) Inverse() PowerState {
	if p.IsOn() {
		return PowerOff
	}
	return PowerOn
}

// ResourceUsage carries the last telemetry sample. Either value may be
// missing, e.g. CPU-only machines or powered-off servers.
type ResourceUsage struct {
	CPUUsage *float64 `json:"cpu_usage"`
	GPUUsage *float64 `json:"gpu_usage"`
}

// ServerView is one row of GET /api/servers.
type ServerView struct {
	ID                  int            `json:"id,omitempty"`
	Name                string         `json:"name"`
	IPMIHost            string         `json:"ipmi_host"`
	PowerState          PowerState     `json:"power_state"`
	LastUpdateTime      *Timestamp     `json:"last_update_time"`
	IsIdle              bool           `json:"is_idle"`
	IdleStartTime       *Timestamp     `json:"idle_start_time"`
	IdleDurationMins    *int           `json:"idle_duration_mins"`
	IdleThresholdMins   *int           `json:"idle_threshold_mins"`
	AutoShutdownEnabled *bool          `json:"auto_shutdown_enabled"`
	CurrentUsage        *ResourceUsage `json:"current_usage"`
}

// ActionResult is the {success, message} envelope returned by mutating calls.
type ActionResult struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

// Succeeded is true only when the backend explicitly reported success.
func (r ActionResult) Succeeded() bool {
	return r.Success != nil && *r.Success
}

type ServerCreate struct {
	Name     string `json:"name"`
	IPMIHost string `json:"ipmi_host"`
	IPMIUser string `json:"ipmi_user"`
	IPMIPass string `json:"ipmi_pass"`
}

type ServerUpdate struct {
	IPMIHost *string `json:"ipmi_host,omitempty"`
	IPMIUser *string `json:"ipmi_user,omitempty"`
	IPMIPass *string `json:"ipmi_pass,omitempty"`
}

type IdleSettings struct {
	IdleThresholdMins int `json:"idle_threshold_mins"`
	// Nil leaves the backend's current auto-shutdown setting unchanged.
	AutoShutdownEnabled *bool `json:"auto_shutdown_enabled,omitempty"`
}

// Timestamp accepts the backend's ISO-8601 output, which may or may not
// carry a zone. Values without a zone are UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON never fails. A value it cannot read is logged and left as
// the zero time so one bad record does not sink the whole server list.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		slog.Warn("Ignoring non-string timestamp", "value", string(data))
		return nil
	}
	if s == "" {
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		slog.Warn("Ignoring unparseable timestamp", "error", err)
		return nil
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}
