package model

// TaskStatus はタスクの進捗状態を表す。
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// IsValid は定義済みの値かどうかを返す。
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

// Priority はタスクの優先度を表す。
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid は定義済みの値かどうかを返す。
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task はユーザーが所有するタスクを表す。
// AssignedToは任意で、参照先ユーザーが削除された場合はNULLになる。
type Task struct {
	Item
	AssignedTo *string    `json:"assigned_to" db:"assigned_to"`
	Status     TaskStatus `json:"status" db:"status"`
	Priority   Priority   `json:"priority" db:"priority"`
}

// Kind は項目の種別を返す。
func (t *Task) Kind() Kind {
	return KindTask
}

// ApplyDefaults は未設定のフィールドに既定値を設定する。
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = TaskStatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.AssignedTo != nil && *t.AssignedTo == "" {
		t.AssignedTo = nil
	}
}

// Validate は共通属性とタスク固有フィールドを検証する。
func (t *Task) Validate() error {
	if err := t.Item.Validate(); err != nil {
		return err
	}
	if !t.Status.IsValid() {
		return NewInvalidChoiceError("status", string(t.Status))
	}
	if !t.Priority.IsValid() {
		return NewInvalidChoiceError("priority", string(t.Priority))
	}
	return nil
}

// FilterValue は一覧フィルタ用のフィールド値を返す。
func (t *Task) FilterValue(field string) (string, bool) {
	switch field {
	case "status":
		return string(t.Status), true
	case "priority":
		return string(t.Priority), true
	case "assigned_to":
		if t.AssignedTo == nil {
			return "", true
		}
		return *t.AssignedTo, true
	}
	return "", false
}
