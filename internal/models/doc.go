// Package models defines domain entities and store interfaces for the likesync library reconciler.
//
// The package contains two categories of types:
//
// 1. Source descriptors: denormalized data as delivered by the Spotify saved-tracks endpoint
//   - [SourceRecord] : One liked track with nested artists and album
//   - [ArtistDescriptor] : Artist as embedded in a track or album
//   - [AlbumDescriptor] : Album with its own artist list
//
// 2. Persistent entities: normalized rows keyed by their Spotify natural key
//   - [Artist]
//   - [Album] : Carries album-level artist keys
//   - [Track] : References one [Album] by store ID and carries track-level artist keys
//
// All persistent entities implement [Entity]. [EntityStore] and [RelationStore] define the
// contract every storage backend satisfies.
package models
