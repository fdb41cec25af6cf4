package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
	"github.com/hmcts/cpp-context-progression-sub010/internal/index"
	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// Documents fetches documents by identity. Both methods return a
// model.ErrNotFound error when the document does not exist.
type Documents interface {
	Hearing(ctx context.Context, id string) (*model.Hearing, error)
	ProsecutionCase(ctx context.Context, id string) (*model.ProsecutionCase, error)
}

// Index fetches stored secondary-index rows.
type Index interface {
	RowsByHearing(ctx context.Context, kind model.IndexKind, hearingID string) ([]model.IndexRow, error)
	RowsByPair(ctx context.Context, kind model.IndexKind, pair model.CaseDefendant) ([]model.IndexRow, error)
}

// Outcome is everything one event produces: full merged documents to save
// and index operations to apply. Each document appears at most once.
type Outcome struct {
	Hearings []*model.Hearing         `json:"hearings,omitempty"`
	Cases    []*model.ProsecutionCase `json:"prosecutionCases,omitempty"`
	IndexOps []model.IndexOp          `json:"indexOps,omitempty"`
	Skipped  []Skip                   `json:"skipped,omitempty"`
}

// Empty reports whether the outcome has nothing to persist.
func (o *Outcome) Empty() bool {
	return len(o.Hearings) == 0 && len(o.Cases) == 0 && len(o.IndexOps) == 0
}

// Skip records an item the event could not apply.
type Skip struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Skip reasons.
const (
	ReasonNotFound      = "not found"
	ReasonInactiveCase  = "case inactive"
	ReasonCaseNotListed = "case not on hearing"
	ReasonNoDefendant   = "defendant not on case"
)

// Reconciler applies events to documents.
type Reconciler struct {
	docs   Documents
	index  Index
	logger *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// New creates a Reconciler reading through docs and index.
func New(docs Documents, index Index, opts ...Option) *Reconciler {
	r := &Reconciler{docs: docs, index: index, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply dispatches p to its entry point.
func (r *Reconciler) Apply(ctx context.Context, p event.Payload) (*Outcome, error) {
	switch e := p.(type) {
	case *event.HearingResulted:
		return r.HearingResulted(ctx, e)
	case *event.ProsecutionCaseResulted:
		return r.ProsecutionCaseResulted(ctx, e)
	case *event.HearingExtended:
		return r.HearingExtended(ctx, e)
	case *event.HearingReallocated:
		return r.HearingReallocated(ctx, e)
	case *event.DefendantsAdded:
		return r.DefendantsAdded(ctx, e)
	case *event.DefendantsMatched:
		return r.DefendantsMatched(ctx, e)
	case *event.DefenceCounselChanged:
		return r.DefenceCounselChanged(ctx, e)
	case *event.ListingStatusChanged:
		return r.ListingStatusChanged(ctx, e)
	}
	return nil, fmt.Errorf("no reconciler for event %T", p)
}

// session holds the working copies of the documents one event touches, so
// that several steps of the same event mutate the same copy.
type session struct {
	ctx    context.Context
	r      *Reconciler
	logger *slog.Logger

	hearings map[string]*model.Hearing
	cases    map[string]*model.ProsecutionCase

	savedHearings map[string]struct{}
	savedCases    map[string]struct{}

	// missing remembers documents already skipped, keyed "kind/id".
	missing map[string]struct{}

	out Outcome
}

func (r *Reconciler) begin(ctx context.Context, p event.Payload) *session {
	return &session{
		ctx:           ctx,
		r:             r,
		logger:        r.logger.With("event", string(p.Kind()), "key", p.Key()),
		hearings:      make(map[string]*model.Hearing),
		cases:         make(map[string]*model.ProsecutionCase),
		savedHearings: make(map[string]struct{}),
		savedCases:    make(map[string]struct{}),
		missing:       make(map[string]struct{}),
	}
}

// hearing returns the working copy of a hearing. ok is false when the
// hearing does not exist; the skip is already recorded.
func (s *session) hearing(id string) (h *model.Hearing, ok bool, err error) {
	if h, ok := s.hearings[id]; ok {
		return h, true, nil
	}
	if _, gone := s.missing["hearing/"+id]; gone {
		return nil, false, nil
	}
	stored, err := s.r.docs.Hearing(s.ctx, id)
	if model.IsNotFound(err) || (err == nil && stored == nil) {
		s.missing["hearing/"+id] = struct{}{}
		s.skip("hearing", id, ReasonNotFound)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("fetch hearing %s: %w", id, err)
	}
	h = model.Clone(stored)
	s.hearings[id] = h
	return h, true, nil
}

// prosecutionCase returns the working copy of a case document.
func (s *session) prosecutionCase(id string) (c *model.ProsecutionCase, ok bool, err error) {
	if c, ok := s.cases[id]; ok {
		return c, true, nil
	}
	if _, gone := s.missing["prosecutionCase/"+id]; gone {
		return nil, false, nil
	}
	stored, err := s.r.docs.ProsecutionCase(s.ctx, id)
	if model.IsNotFound(err) || (err == nil && stored == nil) {
		s.missing["prosecutionCase/"+id] = struct{}{}
		s.skip("prosecutionCase", id, ReasonNotFound)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("fetch prosecution case %s: %w", id, err)
	}
	c = model.Clone(stored)
	s.cases[id] = c
	return c, true, nil
}

func (s *session) saveHearing(h *model.Hearing) {
	if _, done := s.savedHearings[h.ID]; done {
		return
	}
	s.savedHearings[h.ID] = struct{}{}
	s.out.Hearings = append(s.out.Hearings, h)
}

func (s *session) saveCase(c *model.ProsecutionCase) {
	if _, done := s.savedCases[c.ID]; done {
		return
	}
	s.savedCases[c.ID] = struct{}{}
	s.out.Cases = append(s.out.Cases, c)
}

func (s *session) skip(kind, id, reason string) {
	s.logger.Warn("skipping item", "kind", kind, "id", id, "reason", reason)
	s.out.Skipped = append(s.out.Skipped, Skip{Kind: kind, ID: id, Reason: reason})
}

func (s *session) ops(ops ...model.IndexOp) {
	s.out.IndexOps = append(s.out.IndexOps, ops...)
}

// syncHearingIndex diffs the CaseDefendantHearing rows of h.
func (s *session) syncHearingIndex(h *model.Hearing) error {
	stored, err := s.r.index.RowsByHearing(s.ctx, model.IndexCaseDefendantHearing, h.ID)
	if err != nil {
		return fmt.Errorf("fetch index rows for hearing %s: %w", h.ID, err)
	}
	s.ops(index.SyncHearing(h, stored)...)
	return nil
}

func (s *session) done() *Outcome {
	s.logger.Debug("event reconciled",
		"hearings", len(s.out.Hearings),
		"cases", len(s.out.Cases),
		"index_ops", len(s.out.IndexOps),
		"skipped", len(s.out.Skipped),
	)
	out := s.out
	return &out
}
