package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetk3436/powerboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   []byte
}

func newTestServer(t *testing.T, status int, body string) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.EscapedPath()
		rec.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second), rec
}

func TestListServers(t *testing.T) {
	client, rec := newTestServer(t, http.StatusOK,
		`[{"name":"srv1","power_state":"on","current_usage":{"cpu_usage":12.34}}]`)

	servers, err := client.ListServers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/servers", rec.path)
	require.Len(t, servers, 1)
	assert.Equal(t, "srv1", servers[0].Name)
	assert.Equal(t, models.PowerState("on"), servers[0].PowerState)
}

func TestListServers_Errors(t *testing.T) {
	client, _ := newTestServer(t, http.StatusInternalServerError, `{"error":"boom"}`)
	_, err := client.ListServers(context.Background())
	assert.ErrorIs(t, err, ErrStatus)

	client, _ = newTestServer(t, http.StatusOK, `<html>not json</html>`)
	_, err = client.ListServers(context.Background())
	assert.ErrorIs(t, err, ErrDecode)

	client = NewClient("http://127.0.0.1:1", 500*time.Millisecond)
	_, err = client.ListServers(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestListServers_BadTimestamp(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `[
		{"name":"srv1","power_state":"on","last_update_time":"2024-03-10T08:15:00"},
		{"name":"srv2","power_state":"off","last_update_time":"garbage"}
	]`)

	servers, err := client.ListServers(context.Background())
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "srv2", servers[1].Name)
	assert.True(t, servers[1].LastUpdateTime.IsZero())
}

func TestListServers_EmptyArray(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `[]`)
	servers, err := client.ListServers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, servers)
	assert.Empty(t, servers)
}

func TestPowerControl(t *testing.T) {
	client, rec := newTestServer(t, http.StatusOK, `{"success":true,"message":"Server powered off"}`)

	reply, err := client.PowerControl(context.Background(), "rack 1/a", models.PowerOff)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/servers/name/rack%201%2Fa/power/off", rec.path)
	assert.True(t, reply.OK())
	assert.True(t, reply.Succeeded())
	assert.Equal(t, "Server powered off", reply.Message)
}

func TestPowerControl_FailureEnvelope(t *testing.T) {
	client, _ := newTestServer(t, http.StatusBadRequest, `{"success":false,"message":"IPMI unreachable"}`)

	reply, err := client.PowerControl(context.Background(), "srv1", models.PowerOn)
	require.NoError(t, err)
	assert.False(t, reply.OK())
	assert.False(t, reply.Succeeded())
	assert.Equal(t, "IPMI unreachable", reply.Message)
}

func TestUpdateIdleSettings(t *testing.T) {
	client, rec := newTestServer(t, http.StatusOK, `{"success":true}`)

	enabled := true
	_, err := client.UpdateIdleSettings(context.Background(), "gpu", models.IdleSettings{
		IdleThresholdMins:   45,
		AutoShutdownEnabled: &enabled,
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/servers/name/gpu/idle-settings", rec.path)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.body, &sent))
	assert.Equal(t, float64(45), sent["idle_threshold_mins"])
	assert.Equal(t, true, sent["auto_shutdown_enabled"])

	_, err = client.UpdateIdleSettings(context.Background(), "gpu", models.IdleSettings{IdleThresholdMins: 10})
	require.NoError(t, err)
	assert.JSONEq(t, `{"idle_threshold_mins":10}`, string(rec.body))
}

func TestAddServer(t *testing.T) {
	client, rec := newTestServer(t, http.StatusCreated, `{}`)

	reply, err := client.AddServer(context.Background(), models.ServerCreate{
		Name: "new", IPMIHost: "10.0.0.7", IPMIUser: "root", IPMIPass: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/servers/manage", rec.path)
	assert.True(t, reply.OK())
	assert.Nil(t, reply.Success)

	var sent models.ServerCreate
	require.NoError(t, json.Unmarshal(rec.body, &sent))
	assert.Equal(t, "10.0.0.7", sent.IPMIHost)
	assert.Equal(t, "secret", sent.IPMIPass)
}

func TestSend_UndecodableBody(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, ``)

	reply, err := client.AddServer(context.Background(), models.ServerCreate{Name: "x"})
	assert.ErrorIs(t, err, ErrDecode)
	require.NotNil(t, reply)
	assert.Equal(t, http.StatusOK, reply.StatusCode)
}

func TestUpdateAndDeleteServer(t *testing.T) {
	client, rec := newTestServer(t, http.StatusOK, `{"success":true}`)

	host := "10.0.0.8"
	_, err := client.UpdateServer(context.Background(), "srv1", models.ServerUpdate{IPMIHost: &host})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/servers/manage/srv1", rec.path)
	assert.JSONEq(t, `{"ipmi_host":"10.0.0.8"}`, string(rec.body))

	_, err = client.DeleteServer(context.Background(), "srv1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, rec.method)
}

func TestGetServerStatus(t *testing.T) {
	client, rec := newTestServer(t, http.StatusOK, `{"name":"srv1","power_state":"off"}`)

	server, err := client.GetServerStatus(context.Background(), "srv1")
	require.NoError(t, err)
	assert.Equal(t, "/api/servers/name/srv1/status", rec.path)
	assert.Equal(t, "srv1", server.Name)

	client, _ = newTestServer(t, http.StatusNotFound, `{"detail":"not found"}`)
	_, err = client.GetServerStatus(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrStatus)
}

func TestCancelledContext(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `[]`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListServers(ctx)
	assert.ErrorIs(t, err, ErrTransport)
}
