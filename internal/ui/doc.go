// Package ui renders command activity for people watching a mirror run in a terminal.
//
// Structured command telemetry keeps flowing through the regular logger; this package only
// adds the short console lines such as "Cloning alice/repoA into /backup/alice/repoA".
package ui
