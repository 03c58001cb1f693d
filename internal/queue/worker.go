package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	report, err := q.dispatch.PublishNow(ctx, payload.PostID)
	if err != nil {
		// The post may already be claimed or resolved by the cron sweep.
		// Retrying the task cannot help, so swallow the error here.
		log.Printf("Publish task for post %d skipped: %v", payload.PostID, err)
		return nil
	}

	for _, outcome := range report.Results {
		if !outcome.Success {
			log.Printf("Post %d failed to publish: %s", outcome.PostID, outcome.Error)
		}
	}
	return nil
}
