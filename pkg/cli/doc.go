// Package cli holds the command line surface of maasctl.
//
//   - cmd: the cobra commands
//   - ui/confirm: the cleanup confirmation prompt
//   - ui/errorhandler: command execution and remediation hints
package cli
