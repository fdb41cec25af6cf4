package reconcile

import (
	"context"
	"fmt"

	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
	"github.com/hmcts/cpp-context-progression-sub010/internal/index"
	"github.com/hmcts/cpp-context-progression-sub010/internal/master"
	"github.com/hmcts/cpp-context-progression-sub010/internal/merge"
	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
	"github.com/hmcts/cpp-context-progression-sub010/internal/results"
)

// HearingResulted merges shared results into the hearing and into every
// standalone case document the event names. The hearing is proposed
// HEARING_RESULTED.
func (r *Reconciler) HearingResulted(ctx context.Context, e *event.HearingResulted) (*Outcome, error) {
	s := r.begin(ctx, e)
	opts := sharing(e.HearingDay)

	h, ok, err := s.hearing(e.HearingID)
	if err != nil {
		return nil, err
	}
	if ok {
		cases, err := merge.Additive(h.ProsecutionCases, e.ProsecutionCases, opts)
		if err != nil {
			return nil, fmt.Errorf("hearing %s: %w", h.ID, err)
		}
		apps, err := merge.Applications(h.CourtApplications, e.CourtApplications, opts)
		if err != nil {
			return nil, fmt.Errorf("hearing %s: %w", h.ID, err)
		}
		h.ProsecutionCases = cases
		h.CourtApplications = apps
		h.DefendantJudicialResults = results.ReconcileDefendantResults(opts.Results, h.DefendantJudicialResults, e.DefendantJudicialResults)
		s.propose(h, model.StatusHearingResulted)
		s.saveHearing(h)
		if err := s.syncHearingIndex(h); err != nil {
			return nil, err
		}
	}

	for _, in := range e.ProsecutionCases {
		if err := s.mergeCaseDocument(in, opts); err != nil {
			return nil, err
		}
	}
	return s.done(), nil
}

// ProsecutionCaseResulted fans one case's results out to every hearing the
// case is listed on. Hearings that are missing or do not carry the case are
// skipped.
func (r *Reconciler) ProsecutionCaseResulted(ctx context.Context, e *event.ProsecutionCaseResulted) (*Outcome, error) {
	s := r.begin(ctx, e)
	opts := sharing(e.HearingDay)
	delta := e.Case()

	if err := s.mergeCaseDocument(delta, opts); err != nil {
		return nil, err
	}

	hearingIDs, err := s.hearingsFor(e.CaseID, e.HearingIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range hearingIDs {
		h, ok, err := s.hearing(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if h.Case(e.CaseID) == nil {
			s.skip("hearing", id, ReasonCaseNotListed)
			continue
		}
		cases, err := merge.Additive(h.ProsecutionCases, []model.ProsecutionCase{delta}, opts)
		if err != nil {
			return nil, fmt.Errorf("hearing %s: %w", h.ID, err)
		}
		h.ProsecutionCases = cases
		s.propose(h, model.StatusHearingResulted)
		s.saveHearing(h)
		if err := s.syncHearingIndex(h); err != nil {
			return nil, err
		}
	}
	return s.done(), nil
}

// HearingExtended adds cases to a hearing. When the cases came from a prior
// hearing that was neither adjourned nor partially allocated, the moved
// pairs leave the prior hearing's document and index rows.
func (r *Reconciler) HearingExtended(ctx context.Context, e *event.HearingExtended) (*Outcome, error) {
	s := r.begin(ctx, e)

	h, ok, err := s.hearing(e.HearingID)
	if err != nil || !ok {
		return s.result(err)
	}
	cases, err := merge.Additive(h.ProsecutionCases, e.ProsecutionCases, merge.Options{})
	if err != nil {
		return nil, fmt.Errorf("hearing %s: %w", h.ID, err)
	}
	h.ProsecutionCases = cases
	s.saveHearing(h)

	ext := index.Extension{
		Target:         h,
		PriorHearingID: e.ExtendedFromHearingID,
		Moved:          movedPairs(h, e.ProsecutionCases),
		RetainPrior:    e.IsAdjourned || e.IsPartiallyAllocated,
	}
	if ext.PriorHearingID == h.ID {
		ext.PriorHearingID = ""
	}

	storedTarget, err := s.r.index.RowsByHearing(ctx, model.IndexCaseDefendantHearing, h.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch index rows for hearing %s: %w", h.ID, err)
	}
	var storedPrior []model.IndexRow
	if ext.PriorHearingID != "" && !ext.RetainPrior {
		storedPrior, err = s.r.index.RowsByHearing(ctx, model.IndexCaseDefendantHearing, ext.PriorHearingID)
		if err != nil {
			return nil, fmt.Errorf("fetch index rows for hearing %s: %w", ext.PriorHearingID, err)
		}
		if err := s.releasePrior(ext); err != nil {
			return nil, err
		}
	}
	s.ops(index.SyncExtension(ext, storedTarget, storedPrior)...)
	if err := s.resyncMatch(ext.Moved); err != nil {
		return nil, err
	}
	return s.done(), nil
}

// HearingReallocated prunes the named removals from the hearing and merges
// the remaining delta additively.
func (r *Reconciler) HearingReallocated(ctx context.Context, e *event.HearingReallocated) (*Outcome, error) {
	s := r.begin(ctx, e)

	h, ok, err := s.hearing(e.HearingID)
	if err != nil || !ok {
		return s.result(err)
	}
	before := h.Pairs()
	cases, err := merge.ReplaceSubset(h.ProsecutionCases, e.ProsecutionCases, e.Removals, merge.Options{})
	if err != nil {
		return nil, fmt.Errorf("hearing %s: %w", h.ID, err)
	}
	h.ProsecutionCases = cases
	s.saveHearing(h)
	if err := s.syncHearingIndex(h); err != nil {
		return nil, err
	}
	if err := s.resyncMatch(append(before, h.Pairs()...)); err != nil {
		return nil, err
	}
	return s.done(), nil
}

// DefendantsAdded links new defendants to the case document and to every
// hearing that already carries the case. Without explicit hearing ids the
// hearings are looked up through the index.
func (r *Reconciler) DefendantsAdded(ctx context.Context, e *event.DefendantsAdded) (*Outcome, error) {
	s := r.begin(ctx, e)

	hearingIDs, err := s.hearingsFor(e.CaseID, e.HearingIDs)
	if err != nil {
		return nil, err
	}

	c, ok, err := s.prosecutionCase(e.CaseID)
	if err != nil {
		return nil, err
	}
	if ok {
		defs, err := merge.Defendants(c.Defendants, e.Defendants, merge.Options{})
		if err != nil {
			return nil, fmt.Errorf("prosecution case %s: %w", c.ID, err)
		}
		c.Defendants = defs
		s.saveCase(c)
	}

	delta := []model.ProsecutionCase{{ID: e.CaseID, Defendants: e.Defendants}}
	for _, id := range hearingIDs {
		h, ok, err := s.hearing(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if h.Case(e.CaseID) == nil {
			s.skip("hearing", id, ReasonCaseNotListed)
			continue
		}
		cases, err := merge.Additive(h.ProsecutionCases, delta, merge.Options{})
		if err != nil {
			return nil, fmt.Errorf("hearing %s: %w", h.ID, err)
		}
		h.ProsecutionCases = cases
		s.saveHearing(h)
		if err := s.syncHearingIndex(h); err != nil {
			return nil, err
		}
	}
	added := make([]model.CaseDefendant, 0, len(e.Defendants))
	for _, d := range e.Defendants {
		added = append(added, model.CaseDefendant{CaseID: e.CaseID, DefendantID: d.ID})
	}
	if err := s.resyncMatch(added); err != nil {
		return nil, err
	}
	return s.done(), nil
}

// DefendantsMatched resolves the master defendant id of the focal defendant
// and its matches and writes it to every owning case document, every
// hearing holding an updated pair, and the index rows of those pairs.
func (r *Reconciler) DefendantsMatched(ctx context.Context, e *event.DefendantsMatched) (*Outcome, error) {
	s := r.begin(ctx, e)

	res, err := master.Resolve(e.Focal(), e.MatchedDefendants)
	if err != nil {
		return nil, err
	}
	s.logger.Info("master defendant resolved",
		"master_defendant_id", res.MasterDefendantID,
		"fallback", res.Winner == nil,
		"targets", len(res.Targets),
	)

	for _, pair := range res.Targets {
		c, ok, err := s.prosecutionCase(pair.CaseID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if c.Inactive() && !e.ProcessInactiveCase {
			s.skip("prosecutionCase", c.ID, ReasonInactiveCase)
			continue
		}
		d := c.Defendant(pair.DefendantID)
		if d == nil {
			s.skip("defendant", pair.DefendantID, ReasonNoDefendant)
			continue
		}
		d.MasterDefendantID = res.MasterDefendantID
		s.saveCase(c)

		if err := s.propagateMaster(pair, res.MasterDefendantID); err != nil {
			return nil, err
		}
	}
	return s.done(), nil
}

// DefenceCounselChanged merges counsel nodes and drops removed ones.
func (r *Reconciler) DefenceCounselChanged(ctx context.Context, e *event.DefenceCounselChanged) (*Outcome, error) {
	s := r.begin(ctx, e)

	h, ok, err := s.hearing(e.HearingID)
	if err != nil || !ok {
		return s.result(err)
	}
	counsels, err := merge.Counsels(h.DefenceCounsels, e.Added, e.RemovedIDs)
	if err != nil {
		return nil, fmt.Errorf("hearing %s: %w", h.ID, err)
	}
	h.DefenceCounsels = counsels
	s.saveHearing(h)
	return s.done(), nil
}

// ListingStatusChanged runs the listing-status state machine only.
func (r *Reconciler) ListingStatusChanged(ctx context.Context, e *event.ListingStatusChanged) (*Outcome, error) {
	s := r.begin(ctx, e)

	h, ok, err := s.hearing(e.HearingID)
	if err != nil || !ok {
		return s.result(err)
	}
	if s.propose(h, e.ListingStatus) {
		s.saveHearing(h)
	}
	return s.done(), nil
}

func sharing(day model.Day) merge.Options {
	return merge.Options{Results: results.ModeFor(day), Sharing: true}
}

func (s *session) result(err error) (*Outcome, error) {
	if err != nil {
		return nil, err
	}
	return s.done(), nil
}

// propose moves h to status when the state machine allows it.
func (s *session) propose(h *model.Hearing, status model.ListingStatus) bool {
	next, changed := NextStatus(h.ListingStatus, status)
	if !changed {
		if h.ListingStatus != status {
			s.logger.Info("listing status kept", "hearing", h.ID, "status", h.ListingStatus, "proposed", status)
		}
		return false
	}
	h.ListingStatus = next
	return true
}

// mergeCaseDocument merges a case delta into its standalone document.
func (s *session) mergeCaseDocument(in model.ProsecutionCase, opts merge.Options) error {
	c, ok, err := s.prosecutionCase(in.ID)
	if err != nil || !ok {
		return err
	}
	merged, err := merge.Case(*c, in, opts)
	if err != nil {
		return fmt.Errorf("prosecution case %s: %w", c.ID, err)
	}
	*c = merged
	s.saveCase(c)
	return nil
}

// hearingsFor returns explicit when given, otherwise the hearings the index
// lists for any defendant of the stored case.
func (s *session) hearingsFor(caseID string, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return distinct(explicit), nil
	}
	c, ok, err := s.prosecutionCase(caseID)
	if err != nil || !ok {
		return nil, err
	}
	var rows []model.IndexRow
	for _, d := range c.Defendants {
		pair := model.CaseDefendant{CaseID: c.ID, DefendantID: d.ID}
		got, err := s.r.index.RowsByPair(s.ctx, model.IndexCaseDefendantHearing, pair)
		if err != nil {
			return nil, fmt.Errorf("fetch index rows for %s/%s: %w", pair.CaseID, pair.DefendantID, err)
		}
		rows = append(rows, got...)
	}
	return index.HearingIDs(rows), nil
}

// releasePrior removes the moved pairs from the prior hearing's document.
func (s *session) releasePrior(ext index.Extension) error {
	prior, ok, err := s.hearing(ext.PriorHearingID)
	if err != nil || !ok {
		return err
	}
	removals := make([]merge.Removal, 0, len(ext.Moved))
	for _, p := range ext.Moved {
		if c := prior.Case(p.CaseID); c != nil && c.Defendant(p.DefendantID) != nil {
			removals = append(removals, merge.Removal{CaseID: p.CaseID, DefendantID: p.DefendantID})
		}
	}
	if len(removals) == 0 {
		return nil
	}
	cases, err := merge.Prune(prior.ProsecutionCases, removals)
	if err != nil {
		return fmt.Errorf("hearing %s: %w", prior.ID, err)
	}
	prior.ProsecutionCases = cases
	s.saveHearing(prior)
	return nil
}

// propagateMaster writes masterID to the hearings holding pair and returns
// the index operations for both row kinds.
func (s *session) propagateMaster(pair model.CaseDefendant, masterID string) error {
	cdh, err := s.r.index.RowsByPair(s.ctx, model.IndexCaseDefendantHearing, pair)
	if err != nil {
		return fmt.Errorf("fetch index rows for %s/%s: %w", pair.CaseID, pair.DefendantID, err)
	}
	s.ops(index.Repoint(pair, masterID, cdh)...)

	var listed []string
	for _, id := range index.HearingIDs(cdh) {
		h, ok, err := s.hearing(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		listed = append(listed, id)
		if setMaster(h, pair, masterID) {
			s.saveHearing(h)
		}
	}

	mdch, err := s.r.index.RowsByPair(s.ctx, model.IndexMatchDefendantCaseHearing, pair)
	if err != nil {
		return fmt.Errorf("fetch match rows for %s/%s: %w", pair.CaseID, pair.DefendantID, err)
	}
	s.ops(index.SyncMatch(pair, masterID, listed, mdch)...)
	return nil
}

// resyncMatch re-diffs the MatchDefendantCaseHearing rows of pairs that
// already carry a match against the hearings the pair is listed on once this
// event's CaseDefendantHearing ops apply. The stored master id is kept.
func (s *session) resyncMatch(pairs []model.CaseDefendant) error {
	seen := make(map[model.CaseDefendant]struct{}, len(pairs))
	for _, pair := range pairs {
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}

		mdch, err := s.r.index.RowsByPair(s.ctx, model.IndexMatchDefendantCaseHearing, pair)
		if err != nil {
			return fmt.Errorf("fetch match rows for %s/%s: %w", pair.CaseID, pair.DefendantID, err)
		}
		masterID := ""
		for _, row := range mdch {
			if row.Pair() == pair && row.MasterDefendantID != "" {
				masterID = row.MasterDefendantID
				break
			}
		}
		if masterID == "" {
			continue
		}

		cdh, err := s.r.index.RowsByPair(s.ctx, model.IndexCaseDefendantHearing, pair)
		if err != nil {
			return fmt.Errorf("fetch index rows for %s/%s: %w", pair.CaseID, pair.DefendantID, err)
		}
		s.ops(index.SyncMatch(pair, masterID, s.listedOn(pair, cdh), mdch)...)
	}
	return nil
}

// listedOn applies the pending CaseDefendantHearing ops for pair to its
// stored rows and returns the resulting hearing ids.
func (s *session) listedOn(pair model.CaseDefendant, stored []model.IndexRow) []string {
	listed := make(map[string]struct{})
	var order []string
	add := func(id string) {
		if _, ok := listed[id]; ok || id == "" {
			return
		}
		listed[id] = struct{}{}
		order = append(order, id)
	}
	for _, row := range stored {
		if row.Kind == model.IndexCaseDefendantHearing && row.Pair() == pair {
			add(row.HearingID)
		}
	}
	for _, op := range s.out.IndexOps {
		if op.Row.Kind != model.IndexCaseDefendantHearing || op.Row.Pair() != pair {
			continue
		}
		switch op.Op {
		case model.IndexInsert:
			add(op.Row.HearingID)
		case model.IndexDelete:
			delete(listed, op.Row.HearingID)
		}
	}
	ids := make([]string, 0, len(order))
	for _, id := range order {
		if _, ok := listed[id]; ok {
			ids = append(ids, id)
			delete(listed, id)
		}
	}
	return ids
}

// setMaster writes masterID onto the defendant node of pair in h and onto
// its hearing-level results.
func setMaster(h *model.Hearing, pair model.CaseDefendant, masterID string) bool {
	changed := false
	if c := h.Case(pair.CaseID); c != nil {
		if d := c.Defendant(pair.DefendantID); d != nil && d.MasterDefendantID != masterID {
			d.MasterDefendantID = masterID
			changed = true
		}
	}
	for i := range h.DefendantJudicialResults {
		r := &h.DefendantJudicialResults[i]
		if r.DefendantID == pair.DefendantID && r.MasterDefendantID != masterID {
			r.MasterDefendantID = masterID
			changed = true
		}
	}
	return changed
}

// movedPairs lists the pairs an extension carries. A case delta without
// defendants carries every defendant the merged case holds.
func movedPairs(h *model.Hearing, incoming []model.ProsecutionCase) []model.CaseDefendant {
	var pairs []model.CaseDefendant
	for _, in := range incoming {
		defs := in.Defendants
		if len(defs) == 0 {
			if c := h.Case(in.ID); c != nil {
				defs = c.Defendants
			}
		}
		for _, d := range defs {
			pairs = append(pairs, model.CaseDefendant{CaseID: in.ID, DefendantID: d.ID})
		}
	}
	return pairs
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
