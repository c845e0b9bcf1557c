package usecases

import "errors"

// Domain errors for the music player module.
var (
	// ErrNotInVoiceChannel is returned when the user is not in a voice channel.
	ErrNotInVoiceChannel = errors.New("you must be in a voice channel")

	// ErrPlaylistsUnsupported is returned for playlist references.
	ErrPlaylistsUnsupported = errors.New("playlists are not supported, please provide a single video")

	// ErrNoResultsFound is returned when a search yields no results.
	ErrNoResultsFound = errors.New("no results found")

	// ErrPrivateOrRestrictedMedia is returned when the provider refuses access.
	ErrPrivateOrRestrictedMedia = errors.New("this video is private or restricted, please try a different one")

	// ErrInvalidReference is returned for empty input.
	ErrInvalidReference = errors.New("please provide a URL or a search term")

	// ErrResolveFailed wraps unexpected provider failures.
	ErrResolveFailed = errors.New("failed to resolve song")

	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrNotPlaying is returned when no song is currently playing.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrAlreadyPaused is returned when trying to pause while already paused.
	ErrAlreadyPaused = errors.New("playback is already paused")

	// ErrNotPaused is returned when trying to resume while not paused.
	ErrNotPaused = errors.New("playback is not paused")

	// ErrQueueEmpty is returned when the queue is empty.
	ErrQueueEmpty = errors.New("the queue is empty")
)
