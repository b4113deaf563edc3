package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin JSON client for the daemon's /api/v1 surface.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// APIError is a decoded error payload.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

func (e *APIError) Error() string {
	if s, ok := e.Details.(string); ok && s != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, s)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// Wake pulses and rail hold times run inside the request.
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var payload struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(data, &payload); err != nil || payload.Error.Code == "" {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		payload.Error.Status = resp.StatusCode
		return &payload.Error
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type InterfaceInfo struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	SwitchPort *int   `json:"switch_port"`
	ModulePort bool   `json:"module_port"`
}

type InterfaceList struct {
	Board      string          `json:"board"`
	Interfaces []InterfaceInfo `json:"interfaces"`
}

func (c *Client) ListInterfaces(ctx context.Context) (*InterfaceList, error) {
	var out InterfaceList
	if err := c.do(ctx, http.MethodGet, "/api/v1/interfaces", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetPower(ctx context.Context, iface string, on bool) error {
	body := map[string]bool{"on": on}
	return c.do(ctx, http.MethodPost, "/api/v1/interfaces/"+url.PathEscape(iface)+"/power", body, nil)
}

// Wakeout sends a pulse; a nil length uses the daemon's current setting.
func (c *Client) Wakeout(ctx context.Context, iface string, lengthUs *int) (int, error) {
	var body any
	if lengthUs != nil {
		body = map[string]int{"length_us": *lengthUs}
	}
	var out struct {
		LengthUs int `json:"length_us"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/interfaces/"+url.PathEscape(iface)+"/wakeout", body, &out); err != nil {
		return 0, err
	}
	return out.LengthUs, nil
}

type WakeoutLength struct {
	LengthUs       int   `json:"length_us"`
	BoardDefaultUs int   `json:"board_default_us"`
	EffectiveUs    int64 `json:"effective_us"`
}

func (c *Client) GetWakeoutLength(ctx context.Context) (*WakeoutLength, error) {
	var out WakeoutLength
	if err := c.do(ctx, http.MethodGet, "/api/v1/wakeout/length", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetWakeoutLength(ctx context.Context, lengthUs int) (*WakeoutLength, error) {
	var out WakeoutLength
	body := map[string]int{"length_us": lengthUs}
	if err := c.do(ctx, http.MethodPut, "/api/v1/wakeout/length", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type RailState struct {
	GPIO       uint32 `json:"gpio"`
	HoldTimeUs int64  `json:"hold_time_us"`
	ActiveHigh bool   `json:"active_high"`
	DefVal     uint8  `json:"def_val"`
}

type VregState struct {
	Name         string      `json:"name"`
	NrVregs      int         `json:"nr_vregs"`
	PowerEnabled bool        `json:"power_enabled"`
	UseCount     int32       `json:"use_count"`
	Rails        []RailState `json:"rails"`
}

type DetectState struct {
	GPIO       uint32 `json:"gpio"`
	ActiveHigh bool   `json:"active_high"`
	State      string `json:"db_state"`
	LastState  string `json:"last_state"`
}

// InterfaceState mirrors the daemon's per-interface dumpstate payload.
type InterfaceState struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	SwitchPort  *int         `json:"switch_port"`
	InterfaceID *int         `json:"interface_id"`
	Vsys        VregState    `json:"vsys"`
	Refclk      VregState    `json:"refclk"`
	ModulePort  bool         `json:"module_port"`
	SharedWake  bool         `json:"shared_wake_detect"`
	WakeGPIO    *uint32      `json:"wake_gpio"`
	Detect      *DetectState `json:"detect"`
	Hotplug     string       `json:"hotplug_state"`
	Order       string       `json:"order"`
}

func (c *Client) DumpState(ctx context.Context, iface string) ([]InterfaceState, error) {
	var out struct {
		Interfaces []InterfaceState `json:"interfaces"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/interfaces/"+url.PathEscape(iface)+"/state", nil, &out); err != nil {
		return nil, err
	}
	return out.Interfaces, nil
}

type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
