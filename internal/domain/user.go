package domain

import "time"

// User es la identidad durable. Email y teléfono son únicos cuando existen.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
