package domain

import (
	"time"

	"github.com/google/uuid"
)

type FormSubmission struct {
	ID          uuid.UUID         `json:"id"`
	FormName    string            `json:"form_name"`
	Fields      map[string]string `json:"fields"`
	SubmittedAt time.Time         `json:"submitted_at"`
}
