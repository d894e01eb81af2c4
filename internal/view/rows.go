package view

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ahmetk3436/powerboard/internal/models"
)

const (
	TimestampLayout = "2006-01-02 15:04:05"
	NotIdle         = "Not idle"
	NotAvailable    = "N/A"

	BadgeOn  = "success"
	BadgeOff = "danger"
)

// Options carries everything BuildRows depends on besides the servers, so
// that the output is a function of its arguments only.
type Options struct {
	Now      time.Time
	Offset   time.Duration
	Location *time.Location
}

// Row is the view-model of one table row.
type Row struct {
	Name       string `json:"name"`
	Host       string `json:"ipmi_host"`
	PowerState string `json:"power_state"`
	Badge      string `json:"badge"`
	LastUpdate string `json:"last_update"`

	CPU string `json:"cpu"`
	GPU string `json:"gpu"`

	Idle          string `json:"idle"`
	ThresholdMins string `json:"idle_threshold_mins"`
	AutoShutdown  bool   `json:"auto_shutdown_enabled"`

	ToggleLabel  string `json:"toggle_label"`
	ToggleAction string `json:"toggle_action"`
	ToggleClass  string `json:"toggle_class"`
}

// BuildRows maps a fetched server list to table rows in input order.
func BuildRows(servers []models.ServerView, opts Options) []Row {
	rows := make([]Row, 0, len(servers))
	for _, s := range servers {
		rows = append(rows, BuildRow(s, opts))
	}
	return rows
}

func BuildRow(s models.ServerView, opts Options) Row {
	row := Row{
		Name:       s.Name,
		Host:       s.IPMIHost,
		PowerState: string(s.PowerState),
		Badge:      BadgeOff,
		LastUpdate: FormatTimestamp(s.LastUpdateTime, opts.Offset, opts.Location),
	}
	if s.PowerState.IsOn() {
		row.Badge = BadgeOn
	}

	var cpu, gpu *float64
	if s.CurrentUsage != nil {
		cpu, gpu = s.CurrentUsage.CPUUsage, s.CurrentUsage.GPUUsage
	}
	row.CPU = "CPU: " + FormatPercent(cpu)
	row.GPU = "GPU: " + FormatPercent(gpu)

	var idleStart *time.Time
	if s.IdleStartTime != nil && !s.IdleStartTime.IsZero() {
		idleStart = &s.IdleStartTime.Time
	}
	row.Idle = FormatIdleDuration(idleStart, s.IdleDurationMins, opts.Now)
	if s.IdleThresholdMins != nil {
		row.ThresholdMins = strconv.Itoa(*s.IdleThresholdMins)
	}
	if s.AutoShutdownEnabled != nil {
		row.AutoShutdown = *s.AutoShutdownEnabled
	}

	action := s.PowerState.Inverse()
	row.ToggleAction = string(action)
	if action == models.PowerOff {
		row.ToggleLabel = "Power Off"
		row.ToggleClass = BadgeOff
	} else {
		row.ToggleLabel = "Power On"
		row.ToggleClass = BadgeOn
	}
	return row
}

// FormatPercent renders a usage value with one decimal place. Missing or
// non-finite values render as N/A.
func FormatPercent(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f%%", *v)
}

// FormatIdleDuration renders how long a server has been idle. A nil start
// means the server is not idle. The backend-computed minute count wins over
// the locally derived one.
func FormatIdleDuration(start *time.Time, mins *int, now time.Time) string {
	if start == nil {
		return NotIdle
	}

	var total int
	if mins != nil {
		total = *mins
	} else {
		total = int(math.Round(now.Sub(*start).Minutes()))
	}
	if total < 0 {
		total = 0
	}
	return FormatMinutes(total)
}

// FormatMinutes renders 90 as "1h 30m" and 5 as "5m".
func FormatMinutes(total int) string {
	h, m := total/60, total%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatTimestamp shifts t by a fixed offset and renders it in loc.
func FormatTimestamp(t *models.Timestamp, offset time.Duration, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.Add(offset).In(loc).Format(TimestampLayout)
}
