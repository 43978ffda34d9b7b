package dto

// TaskListQuery scopes the task listing.
type TaskListQuery struct {
	AssigneeID  string `form:"assignee_id"`
	Status      string `form:"status" binding:"omitempty,oneof=open in_progress done"`
	TriggerKind string `form:"trigger_kind" binding:"omitempty,oneof=low_performing_center irregular_student delayed_student faculty_conflict low_profitability"`
	Page        int    `form:"page" binding:"omitempty,gt=0"`
	PageSize    int    `form:"page_size" binding:"omitempty,gt=0,lte=100"`
}

// TaskStatusRequest requests a task status transition.
type TaskStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=open in_progress done"`
}
