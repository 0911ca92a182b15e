package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"overseer/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": s.store.Path(),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, StatisticsResponse{
		TotalTasks:    stats.TotalTasks,
		TotalAccounts: stats.TotalAccounts,
		SuccessCount:  stats.SuccessCount,
		FailedCount:   stats.FailedCount,
		SuccessRate:   stats.SuccessRate,
		TotalBalance:  stats.TotalBalance,
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 10)
	if pageSize > 100 {
		pageSize = 100
	}

	var status store.TaskStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := store.ParseTaskStatus(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		status = parsed
	}

	tasks, total, err := s.store.ListTasks(r.Context(), page, pageSize, status)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := TaskListResponse{
		Tasks:    make([]TaskResponse, 0, len(tasks)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, task := range tasks {
		payload.Tasks = append(payload.Tasks, fromTask(task))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleListIncompleteTasks(w http.ResponseWriter, r *http.Request) {
	incomplete, err := s.store.IncompleteTasks(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]IncompleteTaskResponse, 0, len(incomplete))
	for _, task := range incomplete {
		payload = append(payload, IncompleteTaskResponse{
			ID:            task.ID,
			TaskCode:      task.TaskCode,
			Name:          task.Name,
			Status:        string(task.Status),
			TotalAccounts: task.TotalAccounts,
			ActualItems:   task.ActualItems,
			Missing:       task.Missing,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"incomplete_tasks": payload,
		"count":            len(payload),
	})
}

type createTaskRequest struct {
	Name     string `json:"name"`
	Accounts []struct {
		AccountCode string `json:"account_code"`
		Email       string `json:"email"`
		Password    string `json:"password"`
	} `json:"accounts"`
	// UsePool enrolls every pooled account instead of an explicit list.
	UsePool bool `json:"use_pool"`
	// Start launches the run immediately after creation.
	Start bool `json:"start"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inputs := make([]store.NewTaskInput, 0, len(req.Accounts))
	if req.UsePool {
		pool, err := s.store.ListAccounts(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, account := range pool {
			inputs = append(inputs, store.NewTaskInput{
				AccountCode: account.AccountCode,
				Email:       account.Email,
				Password:    account.Password,
			})
		}
	} else {
		for _, account := range req.Accounts {
			inputs = append(inputs, store.NewTaskInput{
				AccountCode: strings.TrimSpace(account.AccountCode),
				Email:       strings.TrimSpace(account.Email),
				Password:    account.Password,
			})
		}
	}

	task, err := s.sup.CreateTask(r.Context(), req.Name, inputs)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Start {
		if err := s.sup.StartTask(r.Context(), task.ID); err != nil {
			s.writeOrchestratorError(w, err)
			return
		}
		if refreshed, err := s.store.TaskByID(r.Context(), task.ID); err == nil && refreshed != nil {
			task = refreshed
		}
	}
	s.writeJSON(w, http.StatusCreated, fromTask(task))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.taskFromPath(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, fromTask(task))
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	task, ok := s.taskFromPath(w, r)
	if !ok {
		return
	}
	items, err := s.store.ItemsByTask(r.Context(), task.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		payload = append(payload, fromItem(item))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": payload})
}

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := s.taskIDFromPath(w, r)
	if !ok {
		return
	}
	if err := s.sup.StartTask(r.Context(), taskID); err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := s.taskIDFromPath(w, r)
	if !ok {
		return
	}
	if err := s.sup.CancelTask(r.Context(), taskID); err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *Server) handleResumeTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := s.taskIDFromPath(w, r)
	if !ok {
		return
	}
	if err := s.sup.ResumeTask(r.Context(), taskID); err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "resumed"})
}

func (s *Server) handleRetryAll(w http.ResponseWriter, r *http.Request) {
	taskID, ok := s.taskIDFromPath(w, r)
	if !ok {
		return
	}
	if err := s.sup.RetryAllFailed(r.Context(), taskID); err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}

func (s *Server) handleRetryItem(w http.ResponseWriter, r *http.Request) {
	taskID, ok := s.taskIDFromPath(w, r)
	if !ok {
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	if err := s.sup.RetrySingleItem(r.Context(), taskID, itemID); err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}

func (s *Server) handleRepairTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := s.taskIDFromPath(w, r)
	if !ok {
		return
	}
	added, err := s.sup.RepairTask(r.Context(), taskID)
	if err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := s.taskIDFromPath(w, r)
	if !ok {
		return
	}
	if err := s.sup.ForceDeleteTask(r.Context(), taskID); err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		payload = append(payload, fromAccount(account))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"accounts": payload})
}

type upsertAccountRequest struct {
	AccountCode string `json:"account_code"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

func (s *Server) handleUpsertAccount(w http.ResponseWriter, r *http.Request) {
	var req upsertAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.AccountCode = strings.TrimSpace(req.AccountCode)
	req.Email = strings.TrimSpace(req.Email)
	if req.AccountCode == "" || req.Email == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "account_code, email, and password are required")
		return
	}
	account, err := s.store.UpsertAccount(r.Context(), req.AccountCode, req.Email, req.Password)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, fromAccount(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "accountCode")
	removed, err := s.store.DeleteAccount(r.Context(), code)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "account not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.notifier.TestNotification(r.Context()); err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) taskIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func (s *Server) taskFromPath(w http.ResponseWriter, r *http.Request) (*store.Task, bool) {
	id, ok := s.taskIDFromPath(w, r)
	if !ok {
		return nil, false
	}
	task, err := s.store.TaskByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if task == nil {
		s.writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	return task, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
