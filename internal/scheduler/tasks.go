package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskOwnerAlert = "owner.alert"

// Alert kinds carried by OwnerAlertPayload.
const (
	AlertSale        = "sale"
	AlertAdvisor     = "advisor"
	AlertReservation = "reservation"
)

// OwnerAlertPayload is everything needed to tell the business owner about a
// lead without reloading the conversation.
type OwnerAlertPayload struct {
	Kind            string     `json:"kind"`
	RecordID        string     `json:"recordId,omitempty"`
	BusinessID      string     `json:"businessId"`
	CustomerID      string     `json:"customerId"`
	CustomerName    string     `json:"customerName"`
	Summary         string     `json:"summary"`
	Total           int64      `json:"total,omitempty"`
	Staff           string     `json:"staff,omitempty"`
	ScheduledAt     *time.Time `json:"scheduledAt,omitempty"`
	DurationMinutes int        `json:"durationMinutes,omitempty"`
}

func NewOwnerAlertTask(payload OwnerAlertPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOwnerAlert, data), nil
}

func ParseOwnerAlertPayload(task *asynq.Task) (OwnerAlertPayload, error) {
	var payload OwnerAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OwnerAlertPayload{}, err
	}
	return payload, nil
}
