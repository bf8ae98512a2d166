package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Appointment struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `json:"from"`
	BranchID  string    `json:"branchId,omitempty"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
}

// Report: закрытая заявка любого потока, кроме записи на приём.
type Report struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	UserID    string            `json:"from"`
	Flow      Flow              `json:"flow"`
	Fields    map[string]string `json:"fields"`
	Estimate  int               `json:"estimate,omitempty"`
	Remote    *bool             `json:"remote,omitempty"`
}

// ShortID: 8 символов, как у коротких номеров заявок.
func ShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
