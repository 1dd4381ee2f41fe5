// Package project defines the part project document model: a tree of typed
// elements (surfaces, components, connections, collisions, bones, meshes)
// rooted at a PartProject, the collections that own them, change
// notification, identifier and name generation, and the XML manifest and
// zip archive persistence formats.
//
// The model is single-writer. Nothing in this package takes locks; callers
// must not mutate a project from more than one goroutine at a time.
package project
