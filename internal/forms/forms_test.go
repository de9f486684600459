package forms

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"printshop/storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	saved []*domain.FormSubmission
	err   error
}

func (r *fakeRepo) SaveSubmission(ctx context.Context, submission *domain.FormSubmission) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, submission)
	return nil
}

type fakeForwarder struct {
	forwarded []url.Values
	err       error
}

func (f *fakeForwarder) Forward(ctx context.Context, values url.Values) error {
	f.forwarded = append(f.forwarded, values)
	return f.err
}

var fixedID = uuid.MustParse("0b3c1a6e-2f4d-4c59-9f4e-6a2b8d7c1e55")

func newTestService(repo *fakeRepo, fwd Forwarder) *Service {
	s := NewService(repo, fwd)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	s.newID = func() uuid.UUID { return fixedID }
	return s
}

func TestSubmit_StoresFieldsWithoutControlFields(t *testing.T) {
	repo := &fakeRepo{}
	fwd := &fakeForwarder{}
	s := newTestService(repo, fwd)

	values := url.Values{
		"form-name": {"contact"},
		"bot-field": {""},
		"email":     {"ana@example.com"},
		"services":  {"flyers", "banners"},
	}
	sub, err := s.Submit(context.Background(), "contact", values)
	require.NoError(t, err)

	want := &domain.FormSubmission{
		ID:          fixedID,
		FormName:    "contact",
		Fields:      map[string]string{"email": "ana@example.com", "services": "flyers, banners"},
		SubmittedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	assert.Equal(t, want, sub)
	assert.Equal(t, []*domain.FormSubmission{want}, repo.saved)
	assert.Equal(t, []url.Values{values}, fwd.forwarded)
}

func TestSubmit_MissingFormName(t *testing.T) {
	repo := &fakeRepo{}
	s := newTestService(repo, nil)

	_, err := s.Submit(context.Background(), "contact", url.Values{"email": {"a@b.c"}, "form-name": {"  "}})

	assert.ErrorIs(t, err, ErrMissingFormName)
	assert.Empty(t, repo.saved)
}

func TestSubmit_FormNameMismatch(t *testing.T) {
	repo := &fakeRepo{}
	fwd := &fakeForwarder{}
	s := newTestService(repo, fwd)

	_, err := s.Submit(context.Background(), "quote", url.Values{"form-name": {"contact"}, "email": {"a@b.c"}})

	assert.ErrorIs(t, err, ErrFormNameMismatch)
	assert.Empty(t, repo.saved)
	assert.Empty(t, fwd.forwarded)
}

func TestSubmit_EmptyTargetTrustsBody(t *testing.T) {
	repo := &fakeRepo{}
	s := newTestService(repo, nil)

	sub, err := s.Submit(context.Background(), "", url.Values{"form-name": {"quote"}})

	require.NoError(t, err)
	assert.Equal(t, "quote", sub.FormName)
}

func TestSubmit_HoneypotDroppedSilently(t *testing.T) {
	repo := &fakeRepo{}
	fwd := &fakeForwarder{}
	s := newTestService(repo, fwd)

	sub, err := s.Submit(context.Background(), "contact", url.Values{"form-name": {"contact"}, "bot-field": {"http://spam"}})

	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Empty(t, repo.saved)
	assert.Empty(t, fwd.forwarded)
}

func TestSubmit_StorageFailure(t *testing.T) {
	fwd := &fakeForwarder{}
	s := newTestService(&fakeRepo{err: errors.New("db down")}, fwd)

	_, err := s.Submit(context.Background(), "quote", url.Values{"form-name": {"quote"}})

	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, fwd.forwarded)
}

func TestSubmit_ForwardFailureKeepsSubmission(t *testing.T) {
	repo := &fakeRepo{}
	s := newTestService(repo, &fakeForwarder{err: errors.New("502")})

	sub, err := s.Submit(context.Background(), "quote", url.Values{"form-name": {"quote"}})

	require.NoError(t, err)
	assert.NotNil(t, sub)
	assert.Len(t, repo.saved, 1)
}

func TestHTTPForwarder(t *testing.T) {
	var gotBody url.Values
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody, _ = url.ParseQuery(string(raw))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fwd := NewHTTPForwarder(srv.URL, time.Second)
	err := fwd.Forward(context.Background(), url.Values{"form-name": {"contact"}, "email": {"ana@example.com"}})

	require.NoError(t, err)
	assert.Contains(t, gotType, "application/x-www-form-urlencoded")
	assert.Equal(t, "contact", gotBody.Get("form-name"))
	assert.Equal(t, "ana@example.com", gotBody.Get("email"))
}

func TestHTTPForwarder_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewHTTPForwarder(srv.URL, time.Second).Forward(context.Background(), url.Values{"form-name": {"x"}})
	assert.ErrorContains(t, err, "502")
}
