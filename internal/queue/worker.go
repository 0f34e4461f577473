package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/postpilothq/postpilot/internal/service"
)

func (j *Queue) HandleGenerateCaptionTask(ctx context.Context, task *asynq.Task) error {
	var payload GenerateCaptionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return j.GenerateCaption(ctx, payload.PostID)
}

// GenerateCaption asks the model for a caption and stores it on the post.
// Errors are returned to asynq, which retries the task with backoff.
func (j *Queue) GenerateCaption(ctx context.Context, postID int64) error {
	post, err := j.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		// Post was deleted between enqueue and processing; nothing to do.
		log.Printf("caption task: post %d no longer exists", postID)
		return nil
	}

	if post.MediaURL == "" {
		return errors.New("post has no media to caption")
	}

	result, err := j.cs.GenerateCaption(ctx, post.MediaURL, post.Category)
	if err != nil {
		return fmt.Errorf("generating caption for post %d: %w", postID, err)
	}

	if err := j.pr.UpdateCaption(ctx, postID, service.RenderCaption(result)); err != nil {
		return fmt.Errorf("saving caption for post %d: %w", postID, err)
	}

	return nil
}
