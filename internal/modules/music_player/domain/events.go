package domain

import "github.com/disgoorg/snowflake/v2"

// TrackEndReason represents why the audio transport stopped a track.
type TrackEndReason string

const (
	// TrackEndFinished means the track finished normally.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the transport could not load the source.
	TrackEndLoadFailed TrackEndReason = "load_failed"
	// TrackEndStopped means the track was stopped explicitly.
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means another track was started over it.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the player was destroyed.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// ShouldAdvanceQueue returns true if this end reason should advance the queue.
func (r TrackEndReason) ShouldAdvanceQueue() bool {
	return r == TrackEndFinished || r == TrackEndLoadFailed
}

// PlaybackFinishedEvent is emitted by a voice session when the source it was
// playing ends on its own.
type PlaybackFinishedEvent struct {
	GuildID   snowflake.ID
	StreamRef string // the reference passed to Play
	PlayID    uint64 // the token passed to Play; unique per start
	Reason    TrackEndReason
	Err       error // set when the transport failed mid-stream
}
