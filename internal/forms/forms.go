package forms

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"printshop/storefront/internal/domain"
	"printshop/storefront/internal/repository"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	FormNameField = "form-name"
	HoneypotField = "bot-field"
)

var (
	ErrMissingFormName  = errors.New("form-name is required")
	ErrFormNameMismatch = errors.New("form-name does not match the form it was posted to")
)

// Forwarder relays an accepted submission to an external form endpoint.
type Forwarder interface {
	Forward(ctx context.Context, values url.Values) error
}

type Service struct {
	repository repository.SubmissionRepository
	forwarder  Forwarder
	now        func() time.Time
	newID      func() uuid.UUID
}

// NewService builds the form handler; forwarder may be nil.
func NewService(repo repository.SubmissionRepository, forwarder Forwarder) *Service {
	return &Service{
		repository: repo,
		forwarder:  forwarder,
		now:        time.Now,
		newID:      uuid.New,
	}
}

// Submit stores one form posted to target. The body's form-name is required and
// must equal target when target is set. A filled honeypot returns (nil, nil): the
// bot sees success and nothing is stored.
func (s *Service) Submit(ctx context.Context, target string, values url.Values) (*domain.FormSubmission, error) {
	if strings.TrimSpace(values.Get(HoneypotField)) != "" {
		log.Infof("🍯 Dropping %q submission with filled honeypot", values.Get(FormNameField))
		return nil, nil
	}

	formName := strings.TrimSpace(values.Get(FormNameField))
	if formName == "" {
		return nil, ErrMissingFormName
	}
	if target != "" && formName != target {
		return nil, fmt.Errorf("%w: posted to %q, named %q", ErrFormNameMismatch, target, formName)
	}

	submission := &domain.FormSubmission{
		ID:          s.newID(),
		FormName:    formName,
		Fields:      fields(values),
		SubmittedAt: s.now().UTC(),
	}

	if err := s.repository.SaveSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}
	log.Infof("📨 Stored %s submission %s", formName, submission.ID)

	if s.forwarder != nil {
		if err := s.forwarder.Forward(ctx, values); err != nil {
			log.Warnf("⚠️ Stored %s submission %s but forwarding failed: %v", formName, submission.ID, err)
		}
	}

	return submission, nil
}

// fields flattens the posted values without the control fields. Repeated keys are
// joined with ", " in posted order.
func fields(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for key, vals := range values {
		if key == FormNameField || key == HoneypotField {
			continue
		}
		out[key] = strings.Join(vals, ", ")
	}
	return out
}
