package model

import "time"

// Progress is the three-valued lifecycle tag of a Task.
// There is no enforced transition order: any state may follow any other.
type Progress string

const (
	ProgressNotStarted Progress = "not-started"
	ProgressInProgress Progress = "in-progress"
	ProgressCompleted  Progress = "completed"
)

// ProgressStates lists every valid Progress value in display order.
var ProgressStates = []Progress{ProgressNotStarted, ProgressInProgress, ProgressCompleted}

// Valid reports whether p is one of ProgressStates.
func (p Progress) Valid() bool {
	switch p {
	case ProgressNotStarted, ProgressInProgress, ProgressCompleted:
		return true
	}
	return false
}

// Task is one trackable work item. UserID is the owner: it is set once at
// creation and no exposed operation ever reassigns it.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Progress    Progress   `json:"progress"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
