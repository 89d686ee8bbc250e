// Package cli constructs the repomirror command-line interface. It wires the
// Cobra command hierarchy to the layered configuration loader and the
// structured logger shared by every subcommand.
package cli
