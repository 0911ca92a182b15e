package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"overseer/internal/config"
)

const userAgent = "Overseer-Go/0.1.0"

// ErrNoEndpoint indicates no browser runner endpoint was configured.
var ErrNoEndpoint = errors.New("executor endpoint is not configured")

// Client talks to the browser runner bridge over HTTP.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient builds an HTTP executor from configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Executor.Endpoint), "/")
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}

	timeout := time.Duration(cfg.Executor.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type runRequest struct {
	TaskCode    string `json:"task_code"`
	AccountCode string `json:"account_code"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Headless    bool   `json:"headless"`
}

type runResponse struct {
	Success    bool     `json:"success"`
	Balance    *float64 `json:"balance"`
	Screenshot string   `json:"screenshot"`
	FailedStep string   `json:"failed_step"`
	Message    string   `json:"message"`
}

// Run submits one account to the browser runner and waits for the outcome.
// A non-nil error means the run could not be carried out at all; a failed
// run with a resolved outcome returns Result.Success == false and nil error.
func (c *Client) Run(ctx context.Context, params Params) (Result, error) {
	body, err := json.Marshal(runRequest{
		TaskCode:    params.TaskCode,
		AccountCode: params.AccountCode,
		Email:       params.Email,
		Password:    params.Password,
		Headless:    params.Headless,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/run", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build run request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call browser runner: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Result{}, fmt.Errorf("browser runner returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded runResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("decode run response: %w", err)
	}

	return Result{
		Success:    decoded.Success,
		Balance:    decoded.Balance,
		Screenshot: strings.TrimSpace(decoded.Screenshot),
		FailedStep: strings.TrimSpace(decoded.FailedStep),
		Message:    strings.TrimSpace(decoded.Message),
	}, nil
}
