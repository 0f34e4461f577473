package queue

import (
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
)

type Queue struct {
	pr repository.PostRepository
	cs service.CaptionService
}

func NewQueue(pr repository.PostRepository, cs service.CaptionService) *Queue {
	return &Queue{
		pr: pr,
		cs: cs,
	}
}

const TaskTypeGenerateCaption = "caption:generate"

type GenerateCaptionPayload struct {
	PostID int64 `json:"post_id"`
}
