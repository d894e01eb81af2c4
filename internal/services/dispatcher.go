package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetk3436/powerboard/internal/backend"
	"github.com/ahmetk3436/powerboard/internal/config"
	"github.com/ahmetk3436/powerboard/internal/metrics"
	"github.com/ahmetk3436/powerboard/internal/models"
)

const (
	ActionPowerOn      = "power_on"
	ActionPowerOff     = "power_off"
	ActionIdleSettings = "idle_settings"
	ActionAddServer    = "add_server"
	ActionUpdateServer = "update_server"
	ActionDeleteServer = "delete_server"
)

const (
	msgTogglePowerFailed  = "Failed to toggle server power"
	msgIdleSettingsFailed = "Failed to update idle settings"
	msgAddServerFailed    = "Failed to add server"
	msgUpdateServerFailed = "Failed to update server"
	msgDeleteServerFailed = "Failed to delete server"
	msgInvalidThreshold   = "Invalid threshold value"
)

// ErrNotConfirmed is returned when a power toggle requires confirmation and
// the operator did not give it. Nothing was sent.
var ErrNotConfirmed = errors.New("power action not confirmed")

// ActionError is a failed action. Message is meant for the operator.
type ActionError struct {
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Outcome is a successful action.
type Outcome struct {
	Action  string
	Message string
}

// ConfirmFunc asks the operator to approve prompt.
type ConfirmFunc func(prompt string) bool

// ServerAPI is the subset of the backend the dispatcher drives.
type ServerAPI interface {
	PowerControl(ctx context.Context, name string, action models.PowerState) (*backend.Reply, error)
	AddServer(ctx context.Context, server models.ServerCreate) (*backend.Reply, error)
	UpdateIdleSettings(ctx context.Context, name string, settings models.IdleSettings) (*backend.Reply, error)
	UpdateServer(ctx context.Context, name string, update models.ServerUpdate) (*backend.Reply, error)
	DeleteServer(ctx context.Context, name string) (*backend.Reply, error)
	GetServerStatus(ctx context.Context, name string) (*models.ServerView, error)
}

type Refresher interface {
	Refresh(ctx context.Context) error
}

type DispatcherOptions struct {
	ConfirmPower    bool
	AddServerPolicy string
}

// Dispatcher turns operator actions into single backend requests. Each
// successful action triggers one refresh; failures leave the board alone.
type Dispatcher struct {
	api       ServerAPI
	refresher Refresher
	auditor   AuditRecorder
	metrics   *metrics.Metrics
	opts      DispatcherOptions
}

func NewDispatcher(api ServerAPI, refresher Refresher, auditor AuditRecorder, m *metrics.Metrics, opts DispatcherOptions) *Dispatcher {
	if opts.AddServerPolicy == "" {
		opts.AddServerPolicy = config.AddServerOptimistic
	}
	return &Dispatcher{
		api:       api,
		refresher: refresher,
		auditor:   auditor,
		metrics:   m,
		opts:      opts,
	}
}

func (d *Dispatcher) ConfirmRequired() bool {
	return d.opts.ConfirmPower
}

// PowerPrompt is the confirmation question for toggling name away from the
// displayed state.
func PowerPrompt(name string, displayed models.PowerState) string {
	return fmt.Sprintf("Are you sure you want to power %s server %s?", displayed.Inverse(), name)
}

// TogglePower sends the inverse of the displayed state.
func (d *Dispatcher) TogglePower(ctx context.Context, name string, displayed models.PowerState, confirm ConfirmFunc) (*Outcome, error) {
	action := displayed.Inverse()
	auditAction := ActionPowerOn
	if action == models.PowerOff {
		auditAction = ActionPowerOff
	}

	if d.opts.ConfirmPower && (confirm == nil || !confirm(PowerPrompt(name, displayed))) {
		return nil, ErrNotConfirmed
	}

	reply, err := d.api.PowerControl(ctx, name, action)
	if err != nil {
		slog.Error("Error toggling power", "server", name, "action", action, "error", err)
		return nil, d.fail(ctx, auditAction, name, msgTogglePowerFailed, err)
	}
	if !reply.Succeeded() {
		slog.Warn("Power toggle rejected", "server", name, "action", action, "status", reply.StatusCode, "message", reply.Message)
		return nil, d.fail(ctx, auditAction, name, messageOr(reply.Message, msgTogglePowerFailed), nil)
	}

	return d.succeed(ctx, auditAction, name, reply.Message), nil
}

// UpdateIdleSettings sends the idle threshold and, when given, the
// auto-shutdown flag.
func (d *Dispatcher) UpdateIdleSettings(ctx context.Context, name string, thresholdMins int, autoShutdown *bool) (*Outcome, error) {
	if thresholdMins < 1 {
		return nil, d.fail(ctx, ActionIdleSettings, name, msgInvalidThreshold, nil)
	}

	settings := models.IdleSettings{IdleThresholdMins: thresholdMins, AutoShutdownEnabled: autoShutdown}
	reply, err := d.api.UpdateIdleSettings(ctx, name, settings)
	if err != nil {
		slog.Error("Error updating idle settings", "server", name, "error", err)
		return nil, d.fail(ctx, ActionIdleSettings, name, msgIdleSettingsFailed, err)
	}
	if !reply.Succeeded() {
		slog.Warn("Idle settings rejected", "server", name, "status", reply.StatusCode, "message", reply.Message)
		return nil, d.fail(ctx, ActionIdleSettings, name, messageOr(reply.Message, msgIdleSettingsFailed), nil)
	}

	return d.succeed(ctx, ActionIdleSettings, name, reply.Message), nil
}

// AddServer posts a new server. Transport failures and undecodable bodies
// always fail. Under the optimistic policy any decoded envelope counts as
// success; the strict policy also surfaces a non-2xx status or success:false.
func (d *Dispatcher) AddServer(ctx context.Context, server models.ServerCreate) (*Outcome, error) {
	strict := d.opts.AddServerPolicy == config.AddServerStrict
	reply, err := d.api.AddServer(ctx, server)
	if err != nil {
		slog.Error("Error adding server", "server", server.Name, "error", err)
		return nil, d.fail(ctx, ActionAddServer, server.Name, msgAddServerFailed, err)
	}

	if strict && rejected(reply) {
		slog.Warn("Add server rejected", "server", server.Name, "status", reply.StatusCode, "message", reply.Message)
		return nil, d.fail(ctx, ActionAddServer, server.Name, messageOr(reply.Message, msgAddServerFailed), nil)
	}

	return d.succeed(ctx, ActionAddServer, server.Name, reply.Message), nil
}

func (d *Dispatcher) UpdateServer(ctx context.Context, name string, update models.ServerUpdate) (*Outcome, error) {
	reply, err := d.api.UpdateServer(ctx, name, update)
	if err != nil {
		slog.Error("Error updating server", "server", name, "error", err)
		return nil, d.fail(ctx, ActionUpdateServer, name, msgUpdateServerFailed, err)
	}
	if rejected(reply) {
		return nil, d.fail(ctx, ActionUpdateServer, name, messageOr(reply.Message, msgUpdateServerFailed), nil)
	}
	return d.succeed(ctx, ActionUpdateServer, name, reply.Message), nil
}

func (d *Dispatcher) DeleteServer(ctx context.Context, name string) (*Outcome, error) {
	reply, err := d.api.DeleteServer(ctx, name)
	if err != nil {
		slog.Error("Error deleting server", "server", name, "error", err)
		return nil, d.fail(ctx, ActionDeleteServer, name, msgDeleteServerFailed, err)
	}
	if rejected(reply) {
		return nil, d.fail(ctx, ActionDeleteServer, name, messageOr(reply.Message, msgDeleteServerFailed), nil)
	}
	return d.succeed(ctx, ActionDeleteServer, name, reply.Message), nil
}

// ServerStatus reads one server straight from the backend.
func (d *Dispatcher) ServerStatus(ctx context.Context, name string) (*models.ServerView, error) {
	return d.api.GetServerStatus(ctx, name)
}

func (d *Dispatcher) succeed(ctx context.Context, action, target, message string) *Outcome {
	d.metrics.ObserveAction(action, true)
	if d.auditor != nil {
		d.auditor.Record(ctx, action, target, true, map[string]interface{}{"message": message})
	}
	if d.refresher != nil {
		if err := d.refresher.Refresh(ctx); err != nil {
			slog.Warn("Refresh after action failed", "action", action, "error", err)
		}
	}
	return &Outcome{Action: action, Message: message}
}

func (d *Dispatcher) fail(ctx context.Context, action, target, message string, cause error) *ActionError {
	d.metrics.ObserveAction(action, false)
	if d.auditor != nil {
		details := map[string]interface{}{"message": message}
		if cause != nil {
			details["error"] = cause.Error()
		}
		d.auditor.Record(ctx, action, target, false, details)
	}
	return &ActionError{Action: action, Message: message, Err: cause}
}

func rejected(reply *backend.Reply) bool {
	return !reply.OK() || (reply.Success != nil && !*reply.Success)
}

func messageOr(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}
