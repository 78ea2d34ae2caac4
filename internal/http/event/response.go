package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmaia/kakeibo/internal/event"
)

type eventResponse struct {
	ID              uuid.UUID  `json:"id"`
	Kind            event.Kind `json:"kind"`
	Amount          int64      `json:"amount"`
	SourceAccountID uuid.UUID  `json:"source_account_id"`
	TargetAccountID *uuid.UUID `json:"target_account_id,omitempty"`
	Category        string     `json:"category,omitempty"`
	Note            string     `json:"note,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

func toResponse(ev *event.Event) eventResponse {
	return eventResponse{
		ID:              ev.ID,
		Kind:            ev.Kind,
		Amount:          ev.Amount,
		SourceAccountID: ev.SourceAccountID,
		TargetAccountID: ev.TargetAccountID,
		Category:        ev.Category,
		Note:            ev.Note,
		OccurredAt:      ev.OccurredAt,
		CreatedAt:       ev.CreatedAt,
		UpdatedAt:       ev.UpdatedAt,
	}
}

func toResponseList(evs []*event.Event) []eventResponse {
	resp := make([]eventResponse, len(evs))
	for i, ev := range evs {
		resp[i] = toResponse(ev)
	}

	return resp
}
