package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskConversationProcess = "conversation.process"

// ConversationProcessPayload identifies one conversation turn to run. The
// customer id and source ride along for log correlation; the worker refetches
// the full conversation when it runs.
type ConversationProcessPayload struct {
	ConversationID string `json:"conversationId"`
	CustomerUserID string `json:"customerUserId"`
	Source         string `json:"source"`
}

func NewConversationProcessTask(payload ConversationProcessPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConversationProcess, data), nil
}

func ParseConversationProcessPayload(task *asynq.Task) (ConversationProcessPayload, error) {
	var payload ConversationProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ConversationProcessPayload{}, err
	}
	return payload, nil
}
