// Package query defines the fact filter language and its SQLite compiler.
//
// A Filter is a conjunction of sealed predicates. Compile turns it into a
// parameterized SELECT over the facts table. Every compiled statement
// orders by structural position (document, start offset, end offset, id)
// and pages by keyset, so a sequence built on it can be restarted from
// any cursor without holding a connection between pages.
//
// Values are never interpolated into SQL text.
package query
