// Package lddenv reads part data from an extracted LEGO Digital Designer
// installation: primitive descriptors (db/Primitives/{id}.xml) and surface
// meshes (db/Primitives/LOD0/{id}.g, {id}.g1, ...).
package lddenv
