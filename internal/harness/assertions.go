package harness

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Seq, ev.ID, ev.Kind, ev.Status)
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			var ae *AssertionError
			if errors.As(err, &ae) {
				ae.Trace = result.Trace
			}
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertListingStatus:
		return assertListingStatus(a, actx)
	case AssertResults:
		return assertResults(a, actx)
	case AssertDefendantResults:
		return assertDefendantResults(a, actx)
	case AssertDefendants:
		return assertDefendants(a, actx)
	case AssertOffences:
		return assertOffences(a, actx)
	case AssertMasterDefendant:
		return assertMasterDefendant(a, actx)
	case AssertIndexCount:
		return assertIndexCount(a, actx)
	case AssertIndexRow:
		return assertIndexRow(a, actx)
	case AssertEventStatus:
		return assertEventStatus(a, actx)
	case AssertSkipped:
		return assertSkipped(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertListingStatus(a Assertion, actx *AssertionContext) error {
	h, err := actx.Store.Hearing(actx.Ctx, a.Hearing)
	if err != nil {
		return err
	}
	if string(h.ListingStatus) != a.Status {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("hearing %s status %s", a.Hearing, a.Status),
			Actual:   string(h.ListingStatus),
		}
	}
	return nil
}

// caseIn resolves the case an assertion addresses: the standalone document,
// or the case embedded in a hearing.
func caseIn(a Assertion, actx *AssertionContext) (*model.ProsecutionCase, error) {
	if a.Document == DocumentProsecutionCase {
		return actx.Store.ProsecutionCase(actx.Ctx, a.ID)
	}
	h, err := actx.Store.Hearing(actx.Ctx, a.ID)
	if err != nil {
		return nil, err
	}
	c := h.Case(a.Case)
	if c == nil {
		return nil, fmt.Errorf("hearing %s has no case %s", a.ID, a.Case)
	}
	return c, nil
}

func defendantIn(a Assertion, actx *AssertionContext) (*model.Defendant, error) {
	c, err := caseIn(a, actx)
	if err != nil {
		return nil, err
	}
	d := c.Defendant(a.Defendant)
	if d == nil {
		return nil, fmt.Errorf("%s %s: case %s has no defendant %s", a.Document, a.ID, c.ID, a.Defendant)
	}
	return d, nil
}

func assertResults(a Assertion, actx *AssertionContext) error {
	d, err := defendantIn(a, actx)
	if err != nil {
		return err
	}
	where := fmt.Sprintf("%s %s defendant %s", a.Document, a.ID, a.Defendant)
	results := d.JudicialResults
	if a.Offence != "" {
		i := slices.IndexFunc(d.Offences, func(o model.Offence) bool { return o.ID == a.Offence })
		if i < 0 {
			return fmt.Errorf("%s has no offence %s", where, a.Offence)
		}
		where += " offence " + a.Offence
		results = d.Offences[i].JudicialResults
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return compareIDs(a.Type, where, a.Results, ids)
}

func assertDefendantResults(a Assertion, actx *AssertionContext) error {
	h, err := actx.Store.Hearing(actx.Ctx, a.Hearing)
	if err != nil {
		return err
	}
	var ids []string
	for _, r := range h.DefendantJudicialResults {
		if a.Defendant == "" || r.DefendantID == a.Defendant {
			ids = append(ids, r.JudicialResult.ID)
		}
	}
	return compareIDs(a.Type, "hearing "+a.Hearing, a.Results, ids)
}

func assertDefendants(a Assertion, actx *AssertionContext) error {
	c, err := caseIn(a, actx)
	if err != nil {
		return err
	}
	ids := make([]string, len(c.Defendants))
	for i, d := range c.Defendants {
		ids[i] = d.ID
	}
	return compareIDs(a.Type, fmt.Sprintf("%s %s case %s", a.Document, a.ID, c.ID), a.IDs, ids)
}

func assertOffences(a Assertion, actx *AssertionContext) error {
	d, err := defendantIn(a, actx)
	if err != nil {
		return err
	}
	ids := make([]string, len(d.Offences))
	for i, o := range d.Offences {
		ids[i] = o.ID
	}
	return compareIDs(a.Type, fmt.Sprintf("%s %s defendant %s", a.Document, a.ID, a.Defendant), a.IDs, ids)
}

func assertMasterDefendant(a Assertion, actx *AssertionContext) error {
	d, err := defendantIn(a, actx)
	if err != nil {
		return err
	}
	if d.MasterDefendantID != *a.Master {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s %s defendant %s master %q", a.Document, a.ID, a.Defendant, *a.Master),
			Actual:   fmt.Sprintf("%q", d.MasterDefendantID),
		}
	}
	return nil
}

func matchingRows(a Assertion, actx *AssertionContext) ([]model.IndexRow, error) {
	rows, err := actx.Store.Rows(actx.Ctx, model.IndexKind(a.Kind))
	if err != nil {
		return nil, err
	}
	var out []model.IndexRow
	for _, r := range rows {
		if a.Case != "" && r.CaseID != a.Case {
			continue
		}
		if a.Defendant != "" && r.DefendantID != a.Defendant {
			continue
		}
		if a.Hearing != "" && r.HearingID != a.Hearing {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func assertIndexCount(a Assertion, actx *AssertionContext) error {
	rows, err := matchingRows(a, actx)
	if err != nil {
		return err
	}
	if len(rows) != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s rows (case=%q defendant=%q hearing=%q)", *a.Count, a.Kind, a.Case, a.Defendant, a.Hearing),
			Actual:   fmt.Sprintf("%d rows: %v", len(rows), rows),
		}
	}
	return nil
}

func assertIndexRow(a Assertion, actx *AssertionContext) error {
	rows, err := matchingRows(a, actx)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.HearingID != a.Hearing {
			continue
		}
		if a.Master != nil && r.MasterDefendantID != *a.Master {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s row %s/%s/%s master %q", a.Kind, a.Case, a.Defendant, a.Hearing, *a.Master),
				Actual:   fmt.Sprintf("master %q", r.MasterDefendantID),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s row %s/%s/%s", a.Kind, a.Case, a.Defendant, a.Hearing),
		Actual:   "not found",
	}
}

func assertEventStatus(a Assertion, actx *AssertionContext) error {
	records, err := actx.Store.Events(actx.Ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.Envelope.ID != a.Event {
			continue
		}
		if rec.Status != a.Status {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("event %s %s", a.Event, a.Status),
				Actual:   fmt.Sprintf("%s (%s)", rec.Status, rec.Error),
			}
		}
		return nil
	}
	return &AssertionError{Type: a.Type, Expected: "event " + a.Event + " logged", Actual: "not in event log"}
}

func assertSkipped(result *Result, a Assertion) error {
	for _, te := range result.Trace {
		if te.ID == a.Event {
			return compareIDs(a.Type, "event "+a.Event, a.Skipped, te.Skipped)
		}
	}
	return &AssertionError{Type: a.Type, Expected: "event " + a.Event + " in trace", Actual: "not found"}
}

func compareIDs(kind, where string, want, got []string) error {
	if len(want) == 0 && len(got) == 0 {
		return nil
	}
	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%s: %v", where, want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}
