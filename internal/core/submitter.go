package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"curricore/internal/blob"
	"curricore/internal/client"
	"curricore/internal/reconcile"
	"curricore/pkg/domain"
)

// SubmissionHeader carries the per-submission id to the backend.
const SubmissionHeader = "X-Submission-ID"

var (
	// ErrSubmissionInFlight is returned while another submission of the same
	// draft is running.
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	// ErrNothingToSubmit is returned in revision mode when no section changed.
	ErrNothingToSubmit = errors.New("no modified sections to submit")
)

// ProposalAPI is the subset of *client.Client the submitter needs.
type ProposalAPI interface {
	Create(ctx context.Context, resource string, body, out any, opts ...client.RequestOption) error
	Revise(ctx context.Context, resource string, id domain.ID, body, out any, opts ...client.RequestOption) error
}

// Target names the backend record a draft is submitted to. A zero or pending
// ID selects creation mode.
type Target struct {
	Resource string
	ID       domain.ID
}

func (t Target) revision() bool { return t.ID.IsPersisted() }

// Receipt describes an accepted submission.
type Receipt struct {
	SubmissionID string
	Resource     string
	ID           domain.ID
	Revision     bool
	Sections     []domain.Section
	// ArchiveKey is empty when no archive is configured or archiving failed.
	ArchiveKey string
	Response   json.RawMessage
}

// SubmitterOption customises a Submitter.
type SubmitterOption func(*Submitter)

// WithArchive stores a copy of every accepted payload.
func WithArchive(archive *blob.Archive) SubmitterOption {
	return func(s *Submitter) { s.archive = archive }
}

// WithSubmissionIDs overrides the submission id generator.
func WithSubmissionIDs(next func() string) SubmitterOption {
	return func(s *Submitter) {
		if next != nil {
			s.nextID = next
		}
	}
}

// Submitter validates, reconciles and sends the draft held by a Service.
type Submitter struct {
	svc     *Service
	api     ProposalAPI
	archive *blob.Archive
	nextID  func() string
	mu      sync.Mutex
}

// NewSubmitter binds a submitter to svc's draft.
func NewSubmitter(svc *Service, api ProposalAPI, opts ...SubmitterOption) *Submitter {
	s := &Submitter{svc: svc, api: api, nextID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview returns the payload Submit would send.
func (s *Submitter) Preview(ctx context.Context) (reconcile.Payload, error) {
	return s.svc.Preview(ctx)
}

// Submit sends the modified sections to target. Creation mode sends every
// section; revision mode only the modified ones. The draft is frozen for the
// duration, so concurrent edits fail with domain.ErrDraftFrozen instead of
// being cleared unsent. On success the draft is cleared.
func (s *Submitter) Submit(ctx context.Context, target Target) (Receipt, error) {
	if strings.TrimSpace(target.Resource) == "" {
		return Receipt{}, fmt.Errorf("submit: resource required")
	}
	if !s.mu.TryLock() {
		return Receipt{}, ErrSubmissionInFlight
	}
	defer s.mu.Unlock()
	release, err := s.svc.store.Freeze()
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrSubmissionInFlight, err)
	}
	defer release()

	start := s.svc.clock.Now()
	receipt, err := s.submit(ctx, target)
	s.svc.observe(ctx, "Submit", start, err)
	return receipt, err
}

func (s *Submitter) submit(ctx context.Context, target Target) (Receipt, error) {
	sections := s.svc.ModifiedSections()
	if !target.revision() {
		sections = domain.SectionSetFrom(domain.AllSections())
	}
	if len(sections) == 0 {
		return Receipt{}, ErrNothingToSubmit
	}
	state := s.svc.State()
	if err := ValidateState(state, sections); err != nil {
		return Receipt{}, err
	}
	payload, err := reconcile.New(s.svc.Baseline()).Reconcile(state, sections)
	if err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{
		SubmissionID: s.nextID(),
		Resource:     target.Resource,
		ID:           target.ID,
		Revision:     target.revision(),
		Sections:     payload.Sections(),
	}
	header := client.WithHeader(SubmissionHeader, receipt.SubmissionID)
	if receipt.Revision {
		err = s.api.Revise(ctx, target.Resource, target.ID, payload, &receipt.Response, header)
	} else {
		err = s.api.Create(ctx, target.Resource, payload, &receipt.Response, header)
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("submit %s: %w", target.Resource, err)
	}

	if s.archive != nil {
		info, err := s.archive.Save(ctx, target.Resource, target.ID, receipt.SubmissionID, payload)
		if err != nil {
			s.svc.logger.Warn("submission archive failed", "submission_id", receipt.SubmissionID, "error", err)
		} else {
			receipt.ArchiveKey = info.Key
		}
	}
	if err := s.svc.Clear(ctx); err != nil {
		s.svc.logger.Error("clear draft after submission", "submission_id", receipt.SubmissionID, "error", err)
	}
	s.svc.logger.Info("proposal submitted",
		"submission_id", receipt.SubmissionID,
		"resource", target.Resource,
		"revision", receipt.Revision,
		"sections", len(receipt.Sections),
	)
	return receipt, nil
}
