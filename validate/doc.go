// Package validate checks caller-supplied parameters and upstream responses.
//
// Input validators never panic and never return an error for bad input;
// they return a Result whose Valid field is false and whose Error field is a
// human-readable reason. Identifier-class fields (room, message, thread and
// user IDs) are additionally screened for query-operator, script and shell
// injection tokens. Free-text fields are only length checked.
//
// Response validation uses JSON Schema in two explicit modes: Lenient logs a
// mismatch and returns the best-effort decode, Strict returns an error.
package validate
