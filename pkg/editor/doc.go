// Package editor holds the session state around the open part project:
// undo history, selection, saved/modified tracking, validation results and
// display toggles. A Manager is owned by one goroutine.
package editor
