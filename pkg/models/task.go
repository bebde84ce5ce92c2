package models

import "time"

// Task tracks actionable work items, with a dependency graph maintained via
// blocked_by/blocking (§3, §9).
type Task struct {
	TaskID           string     `json:"task_id"`
	TenantID         string     `json:"tenant_id"`
	TS               time.Time  `json:"ts"`
	Title            string     `json:"title"`
	Details          string     `json:"details,omitempty"`
	Status           TaskStatus `json:"status"`
	Priority         string     `json:"priority,omitempty"`
	ProgressPercent  int        `json:"progress_percent"`
	AssigneeID       *string    `json:"assignee_id,omitempty"`
	Refs             []string   `json:"refs,omitempty"`
	BlockedBy        []string   `json:"blocked_by,omitempty"`
	Blocking         []string   `json:"blocking,omitempty"`
	ProjectRefs      []string   `json:"project_refs,omitempty"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
}

// CreateTaskInput is the payload for create_task (§6).
type CreateTaskInput struct {
	Title       string     `json:"title"`
	Details     string     `json:"details,omitempty"`
	Status      TaskStatus `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	Refs        []string   `json:"refs,omitempty"`
	BlockedBy   []string   `json:"blocked_by,omitempty"`
	ProjectRefs []string   `json:"project_refs,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// UpdateTaskInput patches a subset of a task's mutable fields.
type UpdateTaskInput struct {
	Title           *string     `json:"title,omitempty"`
	Details         *string     `json:"details,omitempty"`
	Status          *TaskStatus `json:"status,omitempty"`
	Priority        *string     `json:"priority,omitempty"`
	ProgressPercent *int        `json:"progress_percent,omitempty"`
	AssigneeID      *string     `json:"assignee_id,omitempty"`
	BlockedBy       []string    `json:"blocked_by,omitempty"`
	DueDate         *time.Time  `json:"due_date,omitempty"`
}

// TaskFilters narrows list_tasks.
type TaskFilters struct {
	Status     TaskStatus
	AssigneeID string
	ProjectID  string
	Limit      int
	Offset     int
}

// ProjectSummary answers get_project_summary (§6 supplemented feature).
type ProjectSummary struct {
	ProjectID     string  `json:"project_id"`
	OpenCount     int     `json:"open_count"`
	DoingCount    int     `json:"doing_count"`
	BlockedCount  int     `json:"blocked_count"`
	DoneCount     int     `json:"done_count"`
	BlockingTasks []*Task `json:"blocking_tasks"`
	RecentTasks   []*Task `json:"recent_tasks"`
}
