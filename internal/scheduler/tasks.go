package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskFollowUpCheck = "outreach.followup.check"

type FollowUpCheckPayload struct {
	ClientID      string `json:"clientId"`
	AttemptNumber int    `json:"attemptNumber"`
}

func NewFollowUpCheckTask(payload FollowUpCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpCheck, data), nil
}

func ParseFollowUpCheckPayload(task *asynq.Task) (FollowUpCheckPayload, error) {
	var payload FollowUpCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpCheckPayload{}, err
	}
	return payload, nil
}
