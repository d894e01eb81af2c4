package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ahmetk3436/powerboard/internal/models"
	"github.com/go-resty/resty/v2"
)

const (
	serversAPI      = "/api/servers"
	serverStatusAPI = "/api/servers/name/{name}/status"
	powerAPI        = "/api/servers/name/{name}/power/{action}"
	idleSettingsAPI = "/api/servers/name/{name}/idle-settings"
	manageAPI       = "/api/servers/manage"
	manageByNameAPI = "/api/servers/manage/{name}"
)

var (
	// ErrTransport covers connection failures, timeouts and cancelled
	// contexts: the backend never answered.
	ErrTransport = errors.New("backend request failed")
	// ErrDecode means the backend answered with a body that is not the
	// expected JSON shape.
	ErrDecode = errors.New("malformed backend response")
	// ErrStatus is returned by read endpoints on a non-200 answer.
	ErrStatus = errors.New("unexpected backend status")
)

// Reply is the decoded answer of a mutating call. The envelope is decoded
// regardless of the HTTP status since the backend reports failures as
// {success:false, message} with a 4xx/5xx code.
type Reply struct {
	StatusCode int
	models.ActionResult
}

// OK reports a 2xx status.
func (r *Reply) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Client struct {
	baseURL string
	api     *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	api := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{baseURL: baseURL, api: api}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListServers(ctx context.Context) ([]models.ServerView, error) {
	resp, err := c.api.R().
		SetContext(ctx).
		Get(serversAPI)
	if err != nil {
		return nil, fmt.Errorf("%w: list servers: %v", ErrTransport, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: list servers: %d %s", ErrStatus, resp.StatusCode(), resp.String())
	}

	servers := []models.ServerView{}
	if err := json.Unmarshal(resp.Body(), &servers); err != nil {
		return nil, fmt.Errorf("%w: list servers: %v", ErrDecode, err)
	}
	return servers, nil
}

func (c *Client) GetServerStatus(ctx context.Context, name string) (*models.ServerView, error) {
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParam("name", name).
		Get(serverStatusAPI)
	if err != nil {
		return nil, fmt.Errorf("%w: server status %s: %v", ErrTransport, name, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: server status %s: %d %s", ErrStatus, name, resp.StatusCode(), resp.String())
	}

	var server models.ServerView
	if err := json.Unmarshal(resp.Body(), &server); err != nil {
		return nil, fmt.Errorf("%w: server status %s: %v", ErrDecode, name, err)
	}
	return &server, nil
}

func (c *Client) PowerControl(ctx context.Context, name string, action models.PowerState) (*Reply, error) {
	req := c.api.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"name":   name,
			"action": string(action),
		})
	return c.send(req, http.MethodPost, powerAPI, "power "+string(action))
}

func (c *Client) AddServer(ctx context.Context, server models.ServerCreate) (*Reply, error) {
	req := c.api.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(server)
	return c.send(req, http.MethodPost, manageAPI, "add server")
}

func (c *Client) UpdateIdleSettings(ctx context.Context, name string, settings models.IdleSettings) (*Reply, error) {
	req := c.api.R().
		SetContext(ctx).
		SetPathParam("name", name).
		SetHeader("Content-Type", "application/json").
		SetBody(settings)
	return c.send(req, http.MethodPost, idleSettingsAPI, "idle settings")
}

func (c *Client) UpdateServer(ctx context.Context, name string, update models.ServerUpdate) (*Reply, error) {
	req := c.api.R().
		SetContext(ctx).
		SetPathParam("name", name).
		SetHeader("Content-Type", "application/json").
		SetBody(update)
	return c.send(req, http.MethodPut, manageByNameAPI, "update server")
}

func (c *Client) DeleteServer(ctx context.Context, name string) (*Reply, error) {
	req := c.api.R().
		SetContext(ctx).
		SetPathParam("name", name)
	return c.send(req, http.MethodDelete, manageByNameAPI, "delete server")
}

func (c *Client) send(req *resty.Request, method, path, op string) (*Reply, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
	}

	reply := &Reply{StatusCode: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), &reply.ActionResult); err != nil {
		return reply, fmt.Errorf("%w: %s: status %d: %v", ErrDecode, op, resp.StatusCode(), err)
	}
	return reply, nil
}
