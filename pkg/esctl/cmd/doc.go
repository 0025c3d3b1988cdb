// Package cmd contains the cobra command tree for esctl, the command
// line companion of the escalation engine API.
package cmd
