package dto

// NotificationListQuery scopes the notification inbox listing.
type NotificationListQuery struct {
	RecipientID string `form:"recipient_id" binding:"required"`
	Unread      *bool  `form:"unread"`
	Page        int    `form:"page" binding:"omitempty,gt=0"`
	PageSize    int    `form:"page_size" binding:"omitempty,gt=0,lte=100"`
}

// MarkAllReadRequest flags a recipient's entire inbox as read.
type MarkAllReadRequest struct {
	RecipientID string `json:"recipient_id" binding:"required"`
}

// MarkAllReadResponse reports how many notifications were updated.
type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}
