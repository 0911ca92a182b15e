package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"overseer/internal/logging"
	"overseer/internal/orchestrator"
	"overseer/internal/store"
)

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID              int64   `json:"id"`
	TaskCode        string  `json:"task_code"`
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	TotalAccounts   int     `json:"total_accounts"`
	SuccessCount    int     `json:"success_count"`
	FailedCount     int     `json:"failed_count"`
	PendingCount    int     `json:"pending_count"`
	ProgressPercent float64 `json:"progress_percent"`
	TotalBalance    float64 `json:"total_balance"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// ItemResponse is the wire form of a work item. Credentials are not exposed.
type ItemResponse struct {
	ID           int64    `json:"id"`
	TaskID       int64    `json:"task_id"`
	AccountCode  string   `json:"account_code"`
	Email        string   `json:"email"`
	Status       string   `json:"status"`
	Balance      *float64 `json:"balance,omitempty"`
	Message      string   `json:"message,omitempty"`
	Screenshot   string   `json:"screenshot,omitempty"`
	AttemptCount int      `json:"attempt_count"`
	UpdatedAt    string   `json:"updated_at"`
}

// AccountResponse is the wire form of a pooled account.
type AccountResponse struct {
	ID          int64  `json:"id"`
	AccountCode string `json:"account_code"`
	Email       string `json:"email"`
	CreatedAt   string `json:"created_at"`
}

// TaskListResponse pages tasks.
type TaskListResponse struct {
	Tasks    []TaskResponse `json:"tasks"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// IncompleteTaskResponse describes a task short of its declared account total.
type IncompleteTaskResponse struct {
	ID            int64  `json:"id"`
	TaskCode      string `json:"task_code"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	TotalAccounts int    `json:"total_accounts"`
	ActualItems   int    `json:"actual_items"`
	Missing       int    `json:"missing"`
}

// StatisticsResponse aggregates outcomes across all tasks.
type StatisticsResponse struct {
	TotalTasks    int     `json:"total_tasks"`
	TotalAccounts int     `json:"total_accounts"`
	SuccessCount  int     `json:"success_count"`
	FailedCount   int     `json:"failed_count"`
	SuccessRate   float64 `json:"success_rate"`
	TotalBalance  float64 `json:"total_balance"`
}

func fromTask(task *store.Task) TaskResponse {
	return TaskResponse{
		ID:              task.ID,
		TaskCode:        task.TaskCode,
		Name:            task.Name,
		Status:          string(task.Status),
		TotalAccounts:   task.TotalAccounts,
		SuccessCount:    task.SuccessCount,
		FailedCount:     task.FailedCount,
		PendingCount:    task.PendingCount(),
		ProgressPercent: task.ProgressPercent(),
		TotalBalance:    task.TotalBalance,
		CreatedAt:       task.CreatedAt.Format(timeLayout),
		UpdatedAt:       task.UpdatedAt.Format(timeLayout),
	}
}

func fromItem(item *store.WorkItem) ItemResponse {
	return ItemResponse{
		ID:           item.ID,
		TaskID:       item.TaskID,
		AccountCode:  item.AccountCode,
		Email:        item.Email,
		Status:       string(item.Status),
		Balance:      item.Balance,
		Message:      item.Message,
		Screenshot:   item.Screenshot,
		AttemptCount: item.AttemptCount,
		UpdatedAt:    item.UpdatedAt.Format(timeLayout),
	}
}

func fromAccount(account *store.Account) AccountResponse {
	return AccountResponse{
		ID:          account.ID,
		AccountCode: account.AccountCode,
		Email:       account.Email,
		CreatedAt:   account.CreatedAt.Format(timeLayout),
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeOrchestratorError maps supervisor sentinel errors onto HTTP statuses.
func (s *Server) writeOrchestratorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrTaskNotFound), errors.Is(err, orchestrator.ErrItemNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orchestrator.ErrTaskRunning),
		errors.Is(err, orchestrator.ErrTaskNotRunning),
		errors.Is(err, orchestrator.ErrTaskNotStartable),
		errors.Is(err, orchestrator.ErrItemNotRetryable),
		errors.Is(err, orchestrator.ErrNothingToRetry):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
