// Package history records reversible changes to a part project and replays
// them for undo and redo.
//
// A Manager subscribes to a project's collection and property events. Each
// event outside a batch becomes its own undo step; events between
// StartBatchChanges and the outermost EndBatchChanges form a single step.
// Replay mutates the project through the same collections and setters, and
// nothing is recorded while it runs.
package history
