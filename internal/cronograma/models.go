// Package cronograma manages the maintenance schedule: an ordered list of
// activities with a status, its persistence and its PDF and spreadsheet
// renditions.
package cronograma

import (
	"errors"
	"time"
)

// Status of a schedule activity
type Status string

const (
	StatusPending    Status = "pendente"
	StatusInProgress Status = "em_andamento"
	StatusDone       Status = "concluido"
)

// Statuses in display order
var Statuses = []Status{StatusPending, StatusInProgress, StatusDone}

// Label is the human readable status
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pendente"
	case StatusInProgress:
		return "Em andamento"
	case StatusDone:
		return "Concluído"
	}
	if s == "" {
		return "Sem status"
	}
	return string(s)
}

var (
	ErrNotFound     = errors.New("schedule item not found")
	ErrInvalidOrder = errors.New("reorder must list every item exactly once")
)

// Item is one scheduled activity. Order is the 1-based print position.
type Item struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	StartDate    string    `gorm:"size:10" json:"startDate"`
	EndDate      string    `gorm:"size:10" json:"endDate"`
	Activity     string    `gorm:"not null" json:"activity"`
	Status       Status    `gorm:"size:20;not null" json:"status"`
	Observations string    `json:"observations"`
	Order        int       `gorm:"column:position;not null;index" json:"order"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Item) TableName() string { return "cronograma_items" }

// ItemInput is the client-editable part of an Item
type ItemInput struct {
	StartDate    string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Activity     string `json:"activity" validate:"required,max=500"`
	Status       Status `json:"status" validate:"omitempty,oneof=pendente em_andamento concluido"`
	Observations string `json:"observations" validate:"max=2000"`
}

// ReorderRequest lists every item id in the desired order
type ReorderRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// Document is what the renderer prints
type Document struct {
	Title       string `json:"title"`
	Items       []Item `json:"items"`
	GeneratedAt time.Time
}
