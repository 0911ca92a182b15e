package executor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"overseer/internal/executor"
	"overseer/internal/testsupport"
)

func TestClientRunDecodesOutcome(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/run" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"balance": 88.25,
		})
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithExecutorEndpoint(server.URL))
	client, err := executor.NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	result, err := client.Run(context.Background(), executor.Params{
		TaskCode:    "task-x",
		AccountCode: "acct-001",
		Email:       "a@example.com",
		Password:    "secret",
		Headless:    true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success {
		t.Fatal("Success = false, want true")
	}
	if result.Balance == nil || *result.Balance != 88.25 {
		t.Fatalf("Balance = %v", result.Balance)
	}
	if captured["account_code"] != "acct-001" || captured["headless"] != true {
		t.Fatalf("request payload = %v", captured)
	}
}

func TestClientRunReportsFailedStep(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":     false,
			"failed_step": "login",
			"message":     "bad credentials",
			"screenshot":  "shots/acct-001.png",
		})
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithExecutorEndpoint(server.URL))
	client, err := executor.NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	result, err := client.Run(context.Background(), executor.Params{AccountCode: "acct-001"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if result.FailedStep != "login" || result.Screenshot != "shots/acct-001.png" {
		t.Fatalf("result = %+v", result)
	}
}

func TestClientRunRejectsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "runner overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithExecutorEndpoint(server.URL))
	client, err := executor.NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Run(context.Background(), executor.Params{}); err == nil {
		t.Fatal("Run succeeded against 503 response")
	}
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithExecutorEndpoint(""))
	if _, err := executor.NewClient(cfg); err == nil {
		t.Fatal("NewClient accepted empty endpoint")
	}
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		step   string
		detail string
		want   string
	}{
		{"login", "", "login failed"},
		{"login", "bad credentials", "login failed: bad credentials"},
		{"balance", "", "balance could not be read"},
		{"warp", "", `failed at step "warp"`},
		{"warp", "detail", "detail"},
		{"", "", "run failed"},
	}
	for _, tt := range tests {
		if got := executor.FailureMessage(tt.step, tt.detail); got != tt.want {
			t.Errorf("FailureMessage(%q, %q) = %q, want %q", tt.step, tt.detail, got, tt.want)
		}
	}
}
