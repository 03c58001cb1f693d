package queue

import (
	"github.com/pulseboard/publisher/internal/service"
)

// Queue wires asynq task handling to the dispatcher. Each created post gets
// one delayed task; the cron sweep remains the safety net for tasks that
// never fire and for recurrence-generated instances.
type Queue struct {
	dispatch service.DispatchService
}

func NewQueue(dispatch service.DispatchService) *Queue {
	return &Queue{dispatch: dispatch}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
