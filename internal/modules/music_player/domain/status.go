package domain

// PlaybackStatus is the observable state of a guild's voice connection.
type PlaybackStatus int

const (
	StatusDisconnected PlaybackStatus = iota
	StatusPlaying
	StatusPaused
	StatusConnectedIdle
)

// String returns the label shown on the controller.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	case StatusConnectedIdle:
		return "Connected (Idle)"
	default:
		return "Disconnected"
	}
}
