package task

type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Status      string `json:"status" binding:"omitempty,oneof=pending in_progress completed"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high"`
}

// UpdateTaskRequest is a partial update; at least one field must be present.
type UpdateTaskRequest struct {
	Title       *string `json:"title" binding:"omitnil,min=1,max=200"`
	Description *string `json:"description" binding:"omitnil,max=1000"`
	Status      *string `json:"status" binding:"omitnil,oneof=pending in_progress completed"`
	Priority    *string `json:"priority" binding:"omitnil,oneof=low medium high"`
}

func (r UpdateTaskRequest) Patch() Patch {
	var p Patch
	p.Title = r.Title
	p.Description = r.Description
	if r.Status != nil {
		s := Status(*r.Status)
		p.Status = &s
	}
	if r.Priority != nil {
		pr := Priority(*r.Priority)
		p.Priority = &pr
	}
	return p
}

type ListTasksQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending in_progress completed"`
	Priority string `form:"priority" binding:"omitempty,oneof=low medium high"`
	Search   string `form:"search" binding:"omitempty,max=200"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	Limit    int    `form:"limit,default=10" binding:"min=1,max=100"`
}
