package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskCleanupObjects deletes question image objects from the bucket.
const TaskCleanupObjects = "uploads.cleanup_objects"

// Cleanup reasons recorded on the task payload.
const (
	ReasonClientDiscard   = "client_discard"
	ReasonQuestionDeleted = "question_deleted"
	ReasonOrphanSweep     = "orphan_sweep"
)

type CleanupObjectsPayload struct {
	Keys    []string `json:"keys"`
	Reason  string   `json:"reason"`
	OwnerID string   `json:"ownerId,omitempty"`
}

func NewCleanupObjectsTask(payload CleanupObjectsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCleanupObjects, data), nil
}

func ParseCleanupObjectsPayload(task *asynq.Task) (CleanupObjectsPayload, error) {
	var payload CleanupObjectsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CleanupObjectsPayload{}, err
	}
	return payload, nil
}
