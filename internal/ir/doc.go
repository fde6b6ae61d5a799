// Package ir provides the truth-model types shared by every truthgraph package.
//
// This package contains type definitions, identity hashing and canonical
// serialization only. All other internal packages import ir; ir imports
// nothing internal.
//
// The truth model has four layers, ordered from ground truth upward:
//
//	Fact      immutable extracted evidence with a source span
//	Binding   deterministic term -> meaning mapping backed by one fact
//	Inference probabilistic claim citing facts and bindings
//	Opinion   role-dependent judgment, computed fresh and never stored
//
// Key design constraints:
//   - Facts carry no confidence score and are never mutated
//   - Fact, binding and clause identities are content-addressed (see hash.go)
//   - Every kind is a closed variant: Parse* rejects unknown tags
//   - All JSON tags use snake_case
package ir
