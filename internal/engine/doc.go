// Package engine implements the Truth Graph over a store.
//
// The engine keeps the four truth layers apart: facts are immutable
// evidence, bindings resolve defined terms, inferences are scored claims
// that cite facts and bindings, and opinions are formed on demand and never
// stored. Every result handed to a caller carries exactly one layer.
//
// COMPONENTS:
//
//	Ingest / Query          fact store contract, content-addressed identities
//	DeriveBindings/Resolve  binding resolver with override chains
//	EffectiveValue          precedence resolver over a FamilyOrder
//	Classify / GapReport    clause grouping and required-fact slots
//	ResolveReferences       cross-reference resolution, Reachable over cycles
//	Infer / Revise          inference engine with the review threshold
//	ChainFor                provenance assembly
//	ExportGraph             node/edge export for visualization
//
// CONCURRENCY:
//
// Writes to one document are serialized by a per-document lock; writes that
// span a family take every document lock of the family in sorted order.
// Each mutation runs in a single store transaction, so readers see either
// the state before it or after it. Long traversals check the context at
// every node and stop without writing anything.
//
// Epistemic outcomes (ambiguous bindings, conflicting facts, low
// confidence, dangling references) are result values. Structural
// violations are *Error values with an ErrorCode and are never partially
// committed.
package engine
