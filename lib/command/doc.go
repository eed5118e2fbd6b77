// Package command defines the immutable command values of the string
// command set and the generic response envelope pairing each command with
// the result of its execution.
//
// The package focuses on:
//   - Incremental, copy-on-refine construction of command values
//   - Synchronous validation of required arguments at construction time
//   - A single generic Response type parameterized by the output type
//
// Construction Model:
//
// Every command variant starts from a fixed-arity factory that validates
// its required arguments and returns an error naming the missing field if
// one is absent. Refinement methods use value receivers and return a new
// copy, so a partially-built command can be stored and refined in several
// directions without the variants interfering:
//
//	base, _ := command.Set([]byte("greeting"))
//	plain, _ := base.WithValue([]byte("hello"))
//	guarded := plain.WithOption(command.SetIfAbsent)
//	expiring := plain.Expiring(time.Minute)
//
// Byte payloads are shared between copies, never duplicated; commands are
// cheap to refine and to pass through channels.
//
// Optional fields expose (value, ok) accessor pairs so callers can
// distinguish "never set" from an explicit zero, e.g. a zero ttl from a
// command without expiration.
//
// Validation Scope:
//
// Factories and refinements check presence only (nil or empty byte
// sequences, empty maps and key lists). Store-specific legality, such as
// negative offsets or the unary arity of BITOP NOT, is checked by the
// executing store and surfaces as a per-command error in the response
// envelope rather than at construction time.
package command
