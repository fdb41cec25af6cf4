package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// Scenario is one end-to-end reconciliation test.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Setup Setup `yaml:"setup"`

	// Events are applied in order.
	Events []EventStep `yaml:"events"`

	Assertions []Assertion `yaml:"assertions"`
}

// Setup is the state stored before the first event.
type Setup struct {
	Hearings         []map[string]any `yaml:"hearings,omitempty"`
	ProsecutionCases []map[string]any `yaml:"prosecution_cases,omitempty"`
	Index            []IndexRowSpec   `yaml:"index,omitempty"`
}

// IndexRowSpec is a secondary-index row in scenario shorthand.
type IndexRowSpec struct {
	Kind      string `yaml:"kind"`
	Case      string `yaml:"case"`
	Defendant string `yaml:"defendant"`
	Hearing   string `yaml:"hearing,omitempty"`
	Master    string `yaml:"master,omitempty"`
}

// Row converts the shorthand to a model row.
func (r IndexRowSpec) Row() model.IndexRow {
	return model.IndexRow{
		Kind:              model.IndexKind(r.Kind),
		CaseID:            r.Case,
		DefendantID:       r.Defendant,
		HearingID:         r.Hearing,
		MasterDefendantID: r.Master,
	}
}

// EventStep is one event to apply.
type EventStep struct {
	// ID is the envelope id. Defaults to "evt-<n>" (1-based).
	ID string `yaml:"id,omitempty"`

	Kind    string         `yaml:"kind"`
	Payload map[string]any `yaml:"payload"`

	// Expect is the expected event log status: applied (default),
	// malformed or failed.
	Expect string `yaml:"expect,omitempty"`
}

// Expected outcomes of an event step.
const (
	ExpectApplied   = "applied"
	ExpectMalformed = "malformed"
	ExpectFailed    = "failed"
)

// Assertion checks the final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Document selects "hearing" or "prosecution_case" for document
	// assertions; ID is its id.
	Document string `yaml:"document,omitempty"`
	ID       string `yaml:"id,omitempty"`

	Hearing   string `yaml:"hearing,omitempty"`
	Case      string `yaml:"case,omitempty"`
	Defendant string `yaml:"defendant,omitempty"`
	Offence   string `yaml:"offence,omitempty"`

	Status  string   `yaml:"status,omitempty"`
	Results []string `yaml:"results,omitempty"`
	IDs     []string `yaml:"ids,omitempty"`
	Master  *string  `yaml:"master,omitempty"`

	// Kind and Count are used by index assertions.
	Kind  string `yaml:"kind,omitempty"`
	Count *int   `yaml:"count,omitempty"`

	// Event names the event for event_status and skipped.
	Event   string   `yaml:"event,omitempty"`
	Skipped []string `yaml:"skipped,omitempty"`
}

// Assertion type constants.
const (
	AssertListingStatus    = "listing_status"
	AssertResults          = "results"
	AssertDefendantResults = "defendant_results"
	AssertDefendants       = "defendants"
	AssertOffences         = "offences"
	AssertMasterDefendant  = "master_defendant"
	AssertIndexCount       = "index_count"
	AssertIndexRow         = "index_row"
	AssertEventStatus      = "event_status"
	AssertSkipped          = "skipped"
)

// Document selectors.
const (
	DocumentHearing         = "hearing"
	DocumentProsecutionCase = "prosecution_case"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario parses scenario YAML strictly and validates it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	known := make(map[event.Kind]bool)
	for _, k := range event.Kinds() {
		known[k] = true
	}

	for i, doc := range s.Setup.Hearings {
		if id, _ := doc["id"].(string); id == "" {
			return fmt.Errorf("setup.hearings[%d]: id is required", i)
		}
	}
	for i, doc := range s.Setup.ProsecutionCases {
		if id, _ := doc["id"].(string); id == "" {
			return fmt.Errorf("setup.prosecution_cases[%d]: id is required", i)
		}
	}
	for i, row := range s.Setup.Index {
		switch model.IndexKind(row.Kind) {
		case model.IndexCaseDefendantHearing, model.IndexMatchDefendantCaseHearing:
		default:
			return fmt.Errorf("setup.index[%d]: unknown kind %q", i, row.Kind)
		}
		if row.Case == "" || row.Defendant == "" {
			return fmt.Errorf("setup.index[%d]: case and defendant are required", i)
		}
	}

	ids := make(map[string]bool)
	for i := range s.Events {
		step := &s.Events[i]
		if step.ID == "" {
			step.ID = fmt.Sprintf("evt-%d", i+1)
		}
		if ids[step.ID] {
			return fmt.Errorf("events[%d]: duplicate id %q", i, step.ID)
		}
		ids[step.ID] = true
		if step.Kind == "" {
			return fmt.Errorf("events[%d]: kind is required", i)
		}
		if !known[event.Kind(step.Kind)] && step.Expect != ExpectMalformed {
			return fmt.Errorf("events[%d]: unknown kind %q", i, step.Kind)
		}
		switch step.Expect {
		case "":
			step.Expect = ExpectApplied
		case ExpectApplied, ExpectMalformed, ExpectFailed:
		default:
			return fmt.Errorf("events[%d]: unknown expect %q", i, step.Expect)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, ids); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, events map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needDocument := func() error {
		if a.Document != DocumentHearing && a.Document != DocumentProsecutionCase {
			return fmt.Errorf("assertions[%d]: document must be %q or %q for %s", index, DocumentHearing, DocumentProsecutionCase, a.Type)
		}
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for %s", index, a.Type)
		}
		if a.Document == DocumentHearing && a.Case == "" {
			return fmt.Errorf("assertions[%d]: case is required for a hearing %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertListingStatus:
		if a.Hearing == "" || a.Status == "" {
			return fmt.Errorf("assertions[%d]: hearing and status are required for listing_status", index)
		}
	case AssertResults, AssertOffences:
		if err := needDocument(); err != nil {
			return err
		}
		if a.Defendant == "" {
			return fmt.Errorf("assertions[%d]: defendant is required for %s", index, a.Type)
		}
	case AssertDefendants:
		if err := needDocument(); err != nil {
			return err
		}
	case AssertMasterDefendant:
		if err := needDocument(); err != nil {
			return err
		}
		if a.Defendant == "" || a.Master == nil {
			return fmt.Errorf("assertions[%d]: defendant and master are required for master_defendant", index)
		}
	case AssertDefendantResults:
		if a.Hearing == "" {
			return fmt.Errorf("assertions[%d]: hearing is required for defendant_results", index)
		}
	case AssertIndexCount:
		if a.Kind == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: kind and count are required for index_count", index)
		}
	case AssertIndexRow:
		if a.Kind == "" || a.Case == "" || a.Defendant == "" {
			return fmt.Errorf("assertions[%d]: kind, case and defendant are required for index_row", index)
		}
	case AssertEventStatus, AssertSkipped:
		if !events[a.Event] {
			return fmt.Errorf("assertions[%d]: unknown event %q", index, a.Event)
		}
		if a.Type == AssertEventStatus && a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for event_status", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
