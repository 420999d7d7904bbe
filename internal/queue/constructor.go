package queue

import (
	"github.com/crosscast/crosscast/internal/repository"
	"github.com/crosscast/crosscast/internal/service"
)

type Queue struct {
	pr  repository.PostRepository
	pub service.Publisher
}

func NewQueue(pr repository.PostRepository, pub service.Publisher) *Queue {
	return &Queue{
		pr:  pr,
		pub: pub,
	}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
