package proposal

import "time"

type CreatedEvent struct {
	Code   string    `json:"code"`
	Status Status    `json:"status"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
}

func (e *CreatedEvent) Subject() string { return "created" }

type UpdatedEvent struct {
	Code   string    `json:"code"`
	Fields []string  `json:"fields"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
}

func (e *UpdatedEvent) Subject() string { return "updated" }

type StatusChangedEvent struct {
	Code  string    `json:"code"`
	From  Status    `json:"from"`
	To    Status    `json:"to"`
	Actor string    `json:"actor"`
	At    time.Time `json:"at"`
}

func (e *StatusChangedEvent) Subject() string { return "status_changed" }

type DeletedEvent struct {
	Code  string    `json:"code"`
	Actor string    `json:"actor"`
	At    time.Time `json:"at"`
}

func (e *DeletedEvent) Subject() string { return "deleted" }
