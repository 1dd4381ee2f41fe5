// Package geom defines the mesh geometry payload carried by part projects
// and the .geom file codec used to persist it inside project archives.
package geom
