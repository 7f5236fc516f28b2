package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskEventsReconcile drives the pull-based consumer loop: fetch a batch of
// unprocessed events from the store, hand them to the sink, and mark the
// handled ones processed.
const TaskEventsReconcile = "events.reconcile"

// EventsReconcilePayload bounds one reconciliation pass.
type EventsReconcilePayload struct {
	BatchSize int `json:"batchSize"`
}

// NewEventsReconcileTask builds the asynq task for one reconciliation pass.
func NewEventsReconcileTask(payload EventsReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEventsReconcile, data), nil
}

// ParseEventsReconcilePayload decodes a reconcile task payload.
func ParseEventsReconcilePayload(task *asynq.Task) (EventsReconcilePayload, error) {
	var payload EventsReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EventsReconcilePayload{}, err
	}
	return payload, nil
}
