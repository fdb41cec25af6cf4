package event

import (
	"fmt"

	"github.com/hmcts/cpp-context-progression-sub010/internal/master"
	"github.com/hmcts/cpp-context-progression-sub010/internal/merge"
	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// checker collects every error instead of stopping at the first one.
type checker struct {
	errs []ValidationError
}

func (c *checker) add(field, msg string) {
	c.errs = append(c.errs, ValidationError{Field: field, Message: msg})
}

func (c *checker) require(field, v string) {
	if v == "" {
		c.add(field, "is required")
	}
}

func (c *checker) day(field string, d model.Day) {
	if d.IsZero() {
		return
	}
	if _, err := model.ParseDay(string(d)); err != nil {
		c.add(field, fmt.Sprintf("invalid day %q", d))
	}
}

func (c *checker) ids(field string, ids []string) {
	for i, id := range ids {
		if id == "" {
			c.add(fmt.Sprintf("%s[%d]", field, i), "is required")
		}
	}
}

func (c *checker) cases(field string, cases []model.ProsecutionCase) {
	for i, pc := range cases {
		c.require(at(field, i, "id"), pc.ID)
		c.defendants(at(field, i, "defendants"), pc.Defendants)
	}
}

func (c *checker) defendants(field string, defs []model.Defendant) {
	for i, d := range defs {
		c.require(at(field, i, "id"), d.ID)
		c.results(at(field, i, "judicialResults"), d.JudicialResults)
		for j, o := range d.Offences {
			path := at(at(field, i, "offences"), j, "")
			c.require(path+"id", o.ID)
			c.results(path+"judicialResults", o.JudicialResults)
		}
	}
}

func (c *checker) results(field string, rs []model.JudicialResult) {
	for i, r := range rs {
		c.day(at(field, i, "orderedDate"), r.OrderedDate)
	}
}

func (c *checker) defendantResults(field string, rs []model.DefendantJudicialResult) {
	for i, r := range rs {
		c.require(at(field, i, "defendantId"), r.DefendantID)
		c.day(at(field, i, "judicialResult.orderedDate"), r.JudicialResult.OrderedDate)
	}
}

func (c *checker) applications(field string, apps []model.CourtApplication) {
	for i, a := range apps {
		c.require(at(field, i, "id"), a.ID)
		c.results(at(field, i, "judicialResults"), a.JudicialResults)
	}
}

func (c *checker) removals(field string, rs []merge.Removal) {
	for i, r := range rs {
		c.require(at(field, i, "caseId"), r.CaseID)
		if r.OffenceID != "" && r.DefendantID == "" {
			c.add(at(field, i, "defendantId"), "is required when offenceId is set")
		}
	}
}

func (c *checker) proposals(field string, ps []master.Proposal) {
	for i, p := range ps {
		c.require(at(field, i, "caseId"), p.CaseID)
		c.require(at(field, i, "defendantId"), p.DefendantID)
		c.day(at(field, i, "courtProceedingsInitiated"), p.ProceedingsInitiated)
	}
}

// at renders a path element such as "prosecutionCases[2].id". An empty leaf
// leaves a trailing dot for further nesting.
func at(field string, i int, leaf string) string {
	if leaf == "" {
		return fmt.Sprintf("%s[%d].", field, i)
	}
	return fmt.Sprintf("%s[%d].%s", field, i, leaf)
}
