package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

// HandlePublishPostTask drives one queued post through the publisher.
// Asynq may redeliver a task; the publisher skips posts it has already
// handled, so redelivery is harmless.
func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	post, err := q.pr.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		log.Printf("Post %d no longer exists, dropping task", payload.PostID)
		return nil
	}

	result, err := q.pub.PublishPost(ctx, post)
	if err != nil {
		return fmt.Errorf("error publishing post %d: %w", payload.PostID, err)
	}

	for _, failure := range result.Failed {
		log.Printf("Post %d failed on %s: %s", payload.PostID, failure.Platform, failure.Error)
	}

	return nil
}
