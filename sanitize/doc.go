// Package sanitize neutralizes outbound message text before it is posted to
// a chat room.
//
// Two rule families exist. Mention rules defuse mass-notification tokens
// such as @all and @here and can be switched off or narrowed by Config. URL
// rules defuse script-executing schemes and are always applied.
//
// Neutralization inserts a zero-width space (U+200B) into the matched token,
// so the text looks unchanged to a reader but no longer triggers the
// downstream behavior. Output is idempotent: sanitizing already sanitized
// text is a no-op.
package sanitize
