// Package position models where playback has reached within a track.
// TrackPosition records a single confidence-ranked belief; Tracker keeps the latest
// belief per player, refining it from status and beat packets and interpolating
// between them from elapsed time, pitch and direction.
package position
