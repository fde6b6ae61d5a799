// Package store provides SQLite-backed durable storage for the truth graph.
//
// The store persists seven logical tables:
//   - contracts: documents and their family position
//   - facts: the immutable evidence ledger
//   - bindings: term -> meaning mappings with override pointers
//   - inferences: derived claims with invalidation pointers
//   - clauses, cross_references, clause_fact_slots: structural units
//
// # Critical Patterns
//
// Immutability
//   - facts reject every UPDATE via trigger; there is no update API
//   - bindings and inferences reject updates to anything but their
//     override/invalidation pointer
//
// Cascading Deletion
//   - every dependent row cascades from contracts(id)
//
// Deterministic Reads
//   - fact queries are ordered by structural position:
//     document_id, start_offset, end_offset, id COLLATE BINARY
//   - all other listings order by an insertion seq and id
//
// Atomicity
//   - multi-row writes run inside InTx; a failed step rolls the whole
//     transaction back, so readers never observe partial state
//
// # Database Configuration
//
//   - WAL mode: concurrent readers during writes
//   - synchronous=NORMAL
//   - busy_timeout: wait for the write lock (default 5 seconds)
//   - foreign_keys=ON on every pooled connection
//   - _txlock=immediate: transactions take the write lock at BEGIN
package store
