package view

import (
	"bytes"
	"testing"
	"time"

	"github.com/ahmetk3436/powerboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRows_InventoryVariant(t *testing.T) {
	renderer := NewRenderer(NewEngine())
	p := &Presenter{Now: func() time.Time { return time.Unix(0, 0) }}

	out, err := renderer.RenderRows(p.Table([]models.ServerView{
		{Name: "srv 1", IPMIHost: "10.0.0.5", PowerState: "on"},
	}))
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "10.0.0.5")
	assert.Contains(t, html, "Power Off")
	assert.Contains(t, html, "/servers/srv%201/power")
	assert.NotContains(t, html, "idle-settings")
}

func TestRenderRows_IdleVariant(t *testing.T) {
	renderer := NewRenderer(NewEngine())
	p := &Presenter{IdleVariant: true}

	out, err := renderer.RenderRows(p.Table([]models.ServerView{
		{Name: "gpu", IPMIHost: "10.0.0.9", PowerState: "OFF", IdleThresholdMins: ptr(30), AutoShutdownEnabled: ptr(true)},
	}))
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "30 min, auto shutdown on")
	assert.Contains(t, html, "Power On")
	assert.NotContains(t, html, "10.0.0.9")
	// Live pushes replace the rows, so they must not carry editable inputs.
	assert.NotContains(t, html, "idle_threshold_mins")
}

func TestRenderIdleEditors(t *testing.T) {
	p := &Presenter{IdleVariant: true}
	table := p.Table([]models.ServerView{
		{Name: "gpu 2", PowerState: "on", IdleThresholdMins: ptr(45)},
	})

	var buf bytes.Buffer
	require.NoError(t, NewEngine().Render(&buf, "editors", table))

	html := buf.String()
	assert.Contains(t, html, `action="/servers/gpu%202/idle-settings"`)
	assert.Contains(t, html, `name="idle_threshold_mins"`)
	assert.Contains(t, html, `value="45"`)
	assert.NotContains(t, html, "checked")
}

func TestRenderRows_EscapesMarkup(t *testing.T) {
	renderer := NewRenderer(NewEngine())
	p := &Presenter{}

	out, err := renderer.RenderRows(p.Table([]models.ServerView{
		{Name: "<script>alert(1)</script>", PowerState: "on"},
	}))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>alert(1)</script>")
}

func TestRenderRows_Empty(t *testing.T) {
	renderer := NewRenderer(NewEngine())
	out, err := renderer.RenderRows(Table{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "No servers")
}

func TestPresenterStamp(t *testing.T) {
	p := &Presenter{Location: time.UTC}
	assert.Equal(t, "never", p.Stamp(time.Time{}))
	assert.Equal(t, "2024-01-01 00:00:05", p.Stamp(time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC)))
}
