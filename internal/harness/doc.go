// Package harness loads ingestion bundles and runs scenarios against a
// fresh engine.
//
// # Bundle Format
//
// A bundle is a YAML file describing the documents of one or more contract
// families, the facts extracted from them, the clause signals of the
// external classifier and, optionally, inferences over the result:
//
//	documents:
//	  - id: msa
//	    family: acme
//	    title: Master Services Agreement
//	    role: base
//	    facts:
//	      - ref: notice
//	        kind: entity
//	        entity_type: notice_period
//	        value: thirty days
//	        start: 160
//	    clauses:
//	      - clause_type: termination
//	        section_number: "2"
//	        heading: Termination
//	        span: {start: 100, end: 200}
//	inferences:
//	  - ref: notice-answer
//	    family: acme
//	    kind: answer
//	    claim: Either party may terminate on notice
//	    facts: [notice]
//	    terms: [Notice Period]
//	    confidence: 0.9
//	    producer: analyst
//
// A fact's text defaults to its value and its end offset to start plus the
// text length. Fact refs are local labels; inferences cite facts by ref and
// bindings by term.
//
// # Scenario Format
//
// A scenario names the bundles and slot schema to load and the assertions
// to check afterwards:
//
//	name: amendment_overrides_base
//	description: "The amendment's notice period is effective"
//	schema: ../schemas/contract.yaml
//	bundles:
//	  - ../bundles/acme.yaml
//	assertions:
//	  - type: binding
//	    term: Notice Period
//	    document: msa
//	    status: resolved
//	    value: sixty days
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - binding: resolves a term in a document or family scope
//   - effective: checks the precedence decision for a fact kind and key
//   - gaps: compares the missing and partial required slots of a scope
//   - reachable: lists the sections reachable from a clause
//   - references: counts resolved and unresolved cross-references
//   - provenance: checks an inference's review flag and chain
//
// # Deterministic Testing
//
// Every run uses a fresh database, a deterministic clock and sequential
// inference IDs, so the snapshot of a run can be compared against a
// golden file.
package harness
