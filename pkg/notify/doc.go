// Package notify writes formatted, user-facing messages for maasctl commands.
//
// Every message type has a symbol and a color:
// success (✔), error (✗), warning (⚠), info (ℹ), activity (►), skip (⊘),
// and titles that start with an emoji.
//
// The [StageSeparatingWriter] wraps an io.Writer and inserts a blank line before
// every title after the first, so command handlers never track separators by hand.
package notify
