// Package results reconciles judicial result lists.
//
// A result-sharing event carries, per scope (offence, defendant within a
// case, hearing-level defendant results), the complete set of results
// pronounced on one hearing day. Reconcile supersedes exactly that day's
// results and leaves every other day untouched. Events that predate
// day-scoped sharing carry no day and replace the scope wholesale.
//
// Results flagged PublishedForNows are dropped from every output: they
// belong to the notice-generation consumer, not to this projection.
package results

import (
	"slices"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// Mode selects the supersession rule. It is a closed sum type: DayScoped or
// Wholesale.
type Mode interface {
	mode()
}

// DayScoped replaces the results ordered on Day.
type DayScoped struct {
	Day model.Day
}

// Wholesale replaces the whole scope with the incoming list.
type Wholesale struct{}

func (DayScoped) mode() {}
func (Wholesale) mode() {}

// ModeFor returns DayScoped for a set day and Wholesale otherwise.
func ModeFor(day model.Day) Mode {
	if day.IsZero() {
		return Wholesale{}
	}
	return DayScoped{Day: day}
}

// Reconcile merges incoming into existing for one offence or defendant scope.
//
// DayScoped:
//  1. incoming results flagged PublishedForNows are dropped;
//  2. existing results ordered on the day, or sharing an id with an incoming
//     result, are removed;
//  3. the remaining incoming results are added, stamped with the day when
//     they carry none;
//  4. the list is ordered by ordered-date descending; within one day the
//     newly applied batch comes first.
//
// Wholesale returns the filtered incoming list.
//
// An empty outcome is returned as nil so the scope is absent from the
// document. Inputs are never mutated. Applying the same incoming list for
// the same day twice yields the same list as applying it once.
func Reconcile(m Mode, existing, incoming []model.JudicialResult) []model.JudicialResult {
	return reconcile(m, existing, incoming, resultView{})
}

// ReconcileDefendantResults applies Reconcile to the hearing-level
// defendant result list. Identity is (defendant, result).
func ReconcileDefendantResults(m Mode, existing, incoming []model.DefendantJudicialResult) []model.DefendantJudicialResult {
	return reconcile(m, existing, incoming, defendantResultView{})
}

// Persistable returns results without the PublishedForNows ones, or nil if
// none remain.
func Persistable(list []model.JudicialResult) []model.JudicialResult {
	return filter(list, resultView{})
}

// PersistableDefendantResults is Persistable for hearing-level results.
func PersistableDefendantResults(list []model.DefendantJudicialResult) []model.DefendantJudicialResult {
	return filter(list, defendantResultView{})
}

// view abstracts the result carrier so both scopes share one algorithm.
type view[T any] interface {
	result(T) model.JudicialResult
	key(T) string
	withDay(T, model.Day) T
}

type resultView struct{}

func (resultView) result(r model.JudicialResult) model.JudicialResult { return r }
func (resultView) key(r model.JudicialResult) string                  { return r.ID }
func (resultView) withDay(r model.JudicialResult, d model.Day) model.JudicialResult {
	r.OrderedDate = d
	return r
}

type defendantResultView struct{}

func (defendantResultView) result(r model.DefendantJudicialResult) model.JudicialResult {
	return r.JudicialResult
}
func (defendantResultView) key(r model.DefendantJudicialResult) string {
	return r.DefendantID + "\x00" + r.JudicialResult.ID
}
func (defendantResultView) withDay(r model.DefendantJudicialResult, d model.Day) model.DefendantJudicialResult {
	r.JudicialResult.OrderedDate = d
	return r
}

func reconcile[T any, V view[T]](m Mode, existing, incoming []T, v V) []T {
	batch := filter(incoming, v)

	switch m := m.(type) {
	case DayScoped:
		return dayScoped(m.Day, existing, batch, v)
	default:
		return batch
	}
}

func dayScoped[T any, V view[T]](day model.Day, existing, batch []T, v V) []T {
	replaced := make(map[string]struct{}, len(batch))
	for i := range batch {
		if v.result(batch[i]).OrderedDate.IsZero() {
			batch[i] = v.withDay(batch[i], day)
		}
		if k := v.key(batch[i]); k != "" {
			replaced[k] = struct{}{}
		}
	}

	out := make([]T, 0, len(existing)+len(batch))
	out = append(out, batch...)
	for _, ex := range existing {
		r := v.result(ex)
		if r.OrderedDate == day || r.PublishedForNows {
			continue
		}
		if _, ok := replaced[v.key(ex)]; ok && v.key(ex) != "" {
			continue
		}
		out = append(out, ex)
	}

	slices.SortStableFunc(out, func(a, b T) int {
		return v.result(b).OrderedDate.Compare(v.result(a).OrderedDate)
	})

	if len(out) == 0 {
		return nil
	}
	return out
}

// filter drops PublishedForNows results and duplicate identities (first
// occurrence wins). Results without an id are never deduplicated. The returned slice is freshly allocated.
func filter[T any, V view[T]](list []T, v V) []T {
	var out []T
	seen := make(map[string]struct{}, len(list))
	for _, el := range list {
		if v.result(el).PublishedForNows {
			continue
		}
		if k := v.key(el); k != "" {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, el)
	}
	return out
}
