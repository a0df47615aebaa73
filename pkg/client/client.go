package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/power"
	"github.com/cuemby/odin/pkg/thermal"
	"github.com/cuemby/odin/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// Client talks to an odin HTTP API for CLI usage
type Client struct {
	base    string
	timeout time.Duration
}

// APIError is a non-2xx response from the server
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// NewClient creates a client for addr, either host:port or a full URL
func NewClient(addr string) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("api address is required")
	}
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid api address %q: %w", addr, err)
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		timeout: 10 * time.Second,
	}, nil
}

// SetTimeout bounds every request
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

func (c *Client) do(agent *fiber.Agent, out interface{}) error {
	agent.Timeout(c.timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("request failed: %w", errors.Join(errs...))
	}
	if code < 200 || code > 299 {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(body))
		}
		return &APIError{Code: code, Message: e.Error}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) get(path string, out interface{}) error {
	return c.do(fiber.Get(c.base+path), out)
}

func (c *Client) send(method, path string, in, out interface{}) error {
	var agent *fiber.Agent
	switch method {
	case fiber.MethodPost:
		agent = fiber.Post(c.base + path)
	case fiber.MethodPut:
		agent = fiber.Put(c.base + path)
	case fiber.MethodPatch:
		agent = fiber.Patch(c.base + path)
	default:
		return fmt.Errorf("unsupported method %s", method)
	}
	if in != nil {
		agent.JSON(in)
	}
	return c.do(agent, out)
}

func withHorizon(path string, horizon time.Duration) string {
	if horizon <= 0 {
		return path
	}
	return path + "?horizon=" + url.QueryEscape(horizon.String())
}

// Health returns the liveness report
func (c *Client) Health() (map[string]interface{}, error) {
	var out map[string]interface{}
	return out, c.get("/health", &out)
}

// ThermalStatus returns the thermal snapshot
func (c *Client) ThermalStatus() (*thermal.Status, error) {
	var st thermal.Status
	if err := c.get("/v1/thermal/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ThermalForecast projects component temperatures over horizon. Zero uses
// the server default.
func (c *Client) ThermalForecast(horizon time.Duration) (*thermal.Forecast, error) {
	var f thermal.Forecast
	if err := c.get(withHorizon("/v1/thermal/forecast", horizon), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// ThermalResult mirrors the thermal actions response
type ThermalResult struct {
	Response thermal.Response          `json:"response"`
	Results  []thermal.ExecutionResult `json:"results"`
}

// ExecuteThermal generates and executes a thermal response
func (c *Client) ExecuteThermal(trigger thermal.Trigger, severity float64, affected []string) (*ThermalResult, error) {
	req := map[string]interface{}{"trigger": trigger, "severity": severity, "affected": affected}
	var out ThermalResult
	if err := c.send(fiber.MethodPost, "/v1/thermal/actions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PowerStatus returns the power snapshot
func (c *Client) PowerStatus() (*power.Status, error) {
	var st power.Status
	if err := c.get("/v1/power/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// PowerForecast projects the primary bank over horizon
func (c *Client) PowerForecast(horizon time.Duration) (*power.Forecast, error) {
	var f power.Forecast
	if err := c.get(withHorizon("/v1/power/forecast", horizon), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// ExecutePower runs the power decision tree for trigger
func (c *Client) ExecutePower(trigger power.Trigger, severity float64) (*types.Action, error) {
	req := map[string]interface{}{"trigger": trigger, "severity": severity}
	var a types.Action
	if err := c.send(fiber.MethodPost, "/v1/power/actions", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ApprovePower signs off a pending power action
func (c *Client) ApprovePower(id string) error {
	return c.send(fiber.MethodPost, "/v1/power/actions/"+url.PathEscape(id)+"/approve", nil, nil)
}

// ScheduleMetrics returns the current schedule metrics
func (c *Client) ScheduleMetrics() (*mission.ScheduleMetrics, error) {
	var m mission.ScheduleMetrics
	if err := c.get("/v1/schedule/metrics", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Prediction returns the mission prediction over horizon
func (c *Client) Prediction(horizon time.Duration) (*mission.Prediction, error) {
	var p mission.Prediction
	if err := c.get(withHorizon("/v1/schedule/prediction", horizon), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActivities returns every scheduled activity
func (c *Client) ListActivities() ([]*mission.Activity, error) {
	var acts []*mission.Activity
	return acts, c.get("/v1/schedule/activities", &acts)
}

// AddActivities submits activities and returns the accepted ids
func (c *Client) AddActivities(acts []*mission.Activity) ([]string, error) {
	var out struct {
		Added []string `json:"added"`
	}
	if err := c.send(fiber.MethodPost, "/v1/schedule/activities", acts, &out); err != nil {
		return nil, err
	}
	return out.Added, nil
}

// TransitionActivity moves an activity through its lifecycle
func (c *Client) TransitionActivity(id string, status mission.Status) (*mission.Activity, error) {
	var a mission.Activity
	path := "/v1/schedule/activities/" + url.PathEscape(id) + "/status"
	if err := c.send(fiber.MethodPost, path, map[string]mission.Status{"status": status}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Conflicts lists current resource conflicts
func (c *Client) Conflicts() ([]mission.Conflict, error) {
	var out []mission.Conflict
	return out, c.get("/v1/schedule/conflicts", &out)
}

// ResolveConflicts detects and resolves conflicts on the server
func (c *Client) ResolveConflicts() (*mission.ResolutionReport, error) {
	var r mission.ResolutionReport
	if err := c.send(fiber.MethodPost, "/v1/schedule/conflicts", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SetEnvironment replaces the engine's environment snapshot
func (c *Client) SetEnvironment(env types.Environment) (*types.Environment, error) {
	var out types.Environment
	if err := c.send(fiber.MethodPut, "/v1/environment", env, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
