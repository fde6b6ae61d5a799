// Package schema loads the required-fact-spec schema: for each clause type,
// the facts a complete clause of that type must contain.
//
// Schemas are written in YAML or CUE:
//
//	clause_types:
//	  termination:
//	    - name: notice_period
//	      required: true
//	      pattern: "^[0-9]+ (days|months)"
//
// CUE files are unified with a built-in definition before decoding, so a
// malformed spec is reported with its file position.
package schema
