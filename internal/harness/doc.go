// Package harness runs dealbook conformance scenarios.
//
// A scenario seeds a fresh in-memory store, optionally sets the actor
// label, runs a sequence of steps through the engine facade and checks the
// resulting store, views, ledger and snapshots.
//
// # Scenario Format
//
//	name: suffix_number_ledger
//	description: "2.5K is stored as 2500"
//	seed:
//	  fixture: acme
//	  rows:
//	    - table: Companies
//	      values: { id: c2, Company_Name: Beta }
//	  edges:
//	    - { table: Companies_Tasks_tasks, from: c2, to: t1 }
//	actor_label: Dana
//	steps:
//	  - apply:
//	      edits:
//	        - { table: Opportunities, record_id: o1, field: Round_Amount, new_value: 2.5K }
//	      snapshot_root: c1
//	    expect: { updated: 1, events_created: 1, snapshot: true }
//	  - set_label: Robin
//	  - snapshot: { root: c1, tag: manual }
//	assertions:
//	  - type: record
//	    table: Opportunities
//	    id: o1
//	    expect: { Round_Amount: 2500 }
//	  - type: ledger_contains
//	    expect: { field_name: Round_Amount, old_value: null, new_value: "2500" }
//
// A step's expect.error names an error code (LABEL_REQUIRED,
// INVALID_NUMBER, ...). A step without expect must succeed.
//
// # Assertion Types
//
//   - record: a row's stored values (subset match, compared as text)
//   - ledger_count: number of ledger rows, optionally for one table/record
//   - ledger_contains: some ledger row matches expect (subset match)
//   - view: view field values by key
//   - view_rows: number of projection rows and per-row subset matches
//   - snapshot_count: snapshots stored for a root
//   - related_ids: ids linked to a root through the given edge tables
//
// # Determinism
//
// Every run uses ident.SequenceGenerator ids ("id-0001", ...) and a
// testutil.StepClock starting at testutil.DefaultEpoch, so the trace and
// the final ledger are byte-stable and can be compared against golden
// files.
package harness
