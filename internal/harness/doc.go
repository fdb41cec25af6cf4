// Package harness runs end-to-end reconciliation scenarios.
//
// A scenario seeds documents and index rows, feeds a sequence of events
// through the engine and checks the resulting state.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	setup:
//	  hearings:
//	    - id: H1
//	      listingStatus: HEARING_INITIALISED
//	      prosecutionCases: [...]
//	  prosecution_cases:
//	    - id: C1
//	      defendants: [...]
//	  index:
//	    - { kind: CASE_DEFENDANT_HEARING, case: C1, defendant: D1, hearing: H1 }
//	events:
//	  - id: evt-1
//	    kind: hearing-resulted
//	    payload: { hearingId: H1, hearingDay: "2024-03-02", ... }
//	    expect: applied
//	assertions:
//	  - type: listing_status
//	    hearing: H1
//	    status: HEARING_RESULTED
//	  - type: results
//	    document: hearing
//	    id: H1
//	    case: C1
//	    defendant: D1
//	    offence: O1
//	    results: [R2, R1]
//
// Documents and payloads are written in their JSON field names; the
// harness converts them through encoding/json.
//
// # Assertion Types
//
//   - listing_status: hearing listing status
//   - results: ordered result ids on an offence, or on the defendant when
//     no offence is given
//   - defendant_results: ordered hearing-level defendant result ids
//   - defendants, offences: ordered child ids
//   - master_defendant: master id of a defendant in a document
//   - index_count: number of index rows matching the given filters
//   - index_row: one index row exists, optionally with a master id
//   - event_status: event log status of an event
//   - skipped: items an event skipped, as "kind/id"
//
// # Deterministic Runs
//
// Every scenario runs against a fresh in-memory database on one engine lane
// with the clock at zero, so seq numbers and traces are reproducible and
// can be compared against golden files.
package harness
