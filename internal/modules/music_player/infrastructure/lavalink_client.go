package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

// pendingVoiceConnection tracks the state of a pending voice connection.
type pendingVoiceConnection struct {
	mu             sync.Mutex
	needServer     bool
	hasVoiceState  bool
	hasVoiceServer bool
	ready          chan struct{}
}

func newPendingVoiceConnection(needServer bool) *pendingVoiceConnection {
	return &pendingVoiceConnection{
		needServer: needServer,
		ready:      make(chan struct{}),
	}
}

// onEvent marks an event as received and signals ready once every required
// event is present. Moves within a guild only need the voice state.
func (p *pendingVoiceConnection) onEvent(isVoiceState bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isVoiceState {
		p.hasVoiceState = true
	} else {
		p.hasVoiceServer = true
	}

	if p.hasVoiceState && (p.hasVoiceServer || !p.needServer) {
		select {
		case <-p.ready:
			// Already closed
		default:
			close(p.ready)
		}
	}
}

// voiceEventBuffer buffers voice events to ensure both VoiceStateUpdate and
// VoiceServerUpdate are received before forwarding to Lavalink.
// This prevents "Partial Lavalink voice state" errors when events arrive out of order.
type voiceEventBuffer struct {
	mu sync.Mutex

	// From VoiceStateUpdate
	hasVoiceState bool
	channelID     *snowflake.ID
	sessionID     string

	// From VoiceServerUpdate
	hasVoiceServer bool
	token          string
	endpoint       string
}

// setVoiceState stores voice state data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceState(channelID *snowflake.ID, sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceState = true
	b.channelID = channelID
	b.sessionID = sessionID

	return b.hasVoiceState && b.hasVoiceServer
}

// setVoiceServer stores voice server data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceServer(token, endpoint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceServer = true
	b.token = token
	b.endpoint = endpoint

	return b.hasVoiceState && b.hasVoiceServer
}

// getData returns the buffered data and resets the buffer.
func (b *voiceEventBuffer) getData() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channelID = b.channelID
	sessionID = b.sessionID
	token = b.token
	endpoint = b.endpoint

	// Reset buffer
	b.hasVoiceState = false
	b.hasVoiceServer = false
	b.channelID = nil
	b.sessionID = ""
	b.token = ""
	b.endpoint = ""

	return
}

// LavalinkAdapter wraps DisGoLink to provide voice sessions and, when selected,
// media lookups.
type LavalinkAdapter struct {
	link    disgolink.Client
	session *discordgo.Session
	botID   snowflake.ID

	pendingMu sync.Mutex
	pending   map[snowflake.ID]*pendingVoiceConnection

	// voiceBuffers holds buffered voice events per guild to handle out-of-order events
	voiceBufferMu sync.Mutex
	voiceBuffers  map[snowflake.ID]*voiceEventBuffer

	sessionsMu sync.Mutex
	sessions   map[snowflake.ID]*lavalinkSession

	publisher ports.EventPublisher
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// NewLavalinkAdapter creates a new LavalinkAdapter.
func NewLavalinkAdapter(
	session *discordgo.Session,
	config LavalinkConfig,
) (*LavalinkAdapter, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	adapter := &LavalinkAdapter{
		session:      session,
		botID:        botID,
		pending:      make(map[snowflake.ID]*pendingVoiceConnection),
		voiceBuffers: make(map[snowflake.ID]*voiceEventBuffer),
		sessions:     make(map[snowflake.ID]*lavalinkSession),
	}

	// Create DisGoLink client
	link := disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
	)
	adapter.link = link

	// Add Lavalink node
	node, err := link.AddNode(context.Background(), disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// SetEventPublisher sets where finished streams are reported.
func (c *LavalinkAdapter) SetEventPublisher(publisher ports.EventPublisher) {
	c.publisher = publisher
}

// Close disconnects from all Lavalink nodes.
func (c *LavalinkAdapter) Close() {
	c.link.Close()
}

// Connect joins a voice channel and returns its session.
// It waits for both VoiceStateUpdate and VoiceServerUpdate events before returning.
func (c *LavalinkAdapter) Connect(
	ctx context.Context,
	guildID, channelID snowflake.ID,
) (ports.VoiceSession, error) {
	if err := c.joinChannel(ctx, guildID, channelID, true); err != nil {
		return nil, err
	}

	session := &lavalinkSession{
		adapter:   c,
		guildID:   guildID,
		channelID: channelID,
		connected: true,
	}

	c.sessionsMu.Lock()
	c.sessions[guildID] = session
	c.sessionsMu.Unlock()

	return session, nil
}

// joinChannel sends the voice state change and waits until Discord confirms it.
func (c *LavalinkAdapter) joinChannel(
	ctx context.Context,
	guildID, channelID snowflake.ID,
	needServer bool,
) error {
	pending := newPendingVoiceConnection(needServer)

	c.pendingMu.Lock()
	c.pending[guildID] = pending
	c.pendingMu.Unlock()

	// Cleanup pending entry when done
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, guildID)
		c.pendingMu.Unlock()
	}()

	err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-pending.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	case <-time.After(voiceConnectionTimeout):
		return errors.New("timeout waiting for voice connection")
	}
}

// leaveChannel destroys the player and leaves voice.
func (c *LavalinkAdapter) leaveChannel(ctx context.Context, guildID snowflake.ID) error {
	player := c.link.ExistingPlayer(guildID)
	if player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
	}

	c.forgetSession(guildID)

	err := c.session.ChannelVoiceJoinManual(guildID.String(), "", false, false)
	if err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Lookup resolves a URL or search term through the Lavalink node.
// Stream references it returns are encoded tracks.
func (c *LavalinkAdapter) Lookup(ctx context.Context, reference string) (*ports.MediaInfo, error) {
	ref := domain.NewReference(reference)
	if !ref.IsValid() {
		return nil, ports.ErrMediaNotFound
	}

	result, err := c.loadTracks(ctx, ref.SearchQuery())
	if err != nil {
		return nil, err
	}

	track, err := pickTrack(result)
	if err != nil {
		return nil, err
	}
	return convertTrack(track), nil
}

func (c *LavalinkAdapter) loadTracks(ctx context.Context, query string) (*lavalink.LoadResult, error) {
	node := c.link.BestNode()
	if node == nil {
		return nil, errors.New("no available Lavalink node")
	}

	result, err := node.LoadTracks(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	return result, nil
}

// pickTrack returns the single track a load result stands for.
func pickTrack(result *lavalink.LoadResult) (lavalink.Track, error) {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return data, nil

	case lavalink.Search:
		if len(data) == 0 {
			return lavalink.Track{}, ports.ErrMediaNotFound
		}
		return data[0], nil

	case lavalink.Playlist:
		return lavalink.Track{}, ports.ErrPlaylistReference

	case lavalink.Exception:
		return lavalink.Track{}, classifyLoadException(data.Message)

	default:
		return lavalink.Track{}, ports.ErrMediaNotFound
	}
}

// classifyLoadException maps Lavalink load errors onto media errors.
func classifyLoadException(message string) error {
	lower := strings.ToLower(message)
	for _, marker := range restrictedMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", ports.ErrMediaRestricted, message)
		}
	}
	return fmt.Errorf("lavalink failed to load track: %s", message)
}

// convertTrack converts a Lavalink track to MediaInfo.
func convertTrack(track lavalink.Track) *ports.MediaInfo {
	info := track.Info
	return &ports.MediaInfo{
		ID:         info.Identifier,
		Title:      info.Title,
		StreamURL:  track.Encoded,
		WebpageURL: getStringPtr(info.URI),
		Duration:   time.Duration(info.Length) * time.Millisecond,
	}
}

func getStringPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// encodedTrack returns the encoded Lavalink track for a stream reference.
// Direct media URLs are loaded through Lavalink's HTTP source first.
func (c *LavalinkAdapter) encodedTrack(ctx context.Context, streamRef string) (string, error) {
	if !isHTTPRef(streamRef) {
		return streamRef, nil
	}

	result, err := c.loadTracks(ctx, streamRef)
	if err != nil {
		return "", err
	}
	track, err := pickTrack(result)
	if err != nil {
		return "", fmt.Errorf("failed to load stream: %w", err)
	}
	return track.Encoded, nil
}

func isHTTPRef(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	// Get or create voice buffer for this guild
	buffer := c.getOrCreateVoiceBuffer(guildID)

	// Store voice server data and check if both events are ready
	if buffer.setVoiceServer(event.Token, event.Endpoint) {
		// Both events received, forward to Lavalink
		c.forwardBufferedVoiceEvents(guildID, buffer)
	}

	c.pendingMu.Lock()
	pending := c.pending[guildID]
	c.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(false)
	}
}

// OnVoiceStateUpdate handles Discord voice state updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	// Only handle updates for the bot itself
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	sessionID := event.SessionID

	// Parse the channel ID - if empty, the bot is disconnecting
	var channelID *snowflake.ID
	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return
		}
		channelID = &id
	}

	// Handle disconnect immediately (no need to wait for VoiceServerUpdate)
	if channelID == nil {
		c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, sessionID)
		c.clearVoiceBuffer(guildID)
		c.forgetSession(guildID)
		return
	}

	if session := c.sessionFor(guildID); session != nil {
		session.setChannel(*channelID)
	}

	// Get or create voice buffer for this guild
	buffer := c.getOrCreateVoiceBuffer(guildID)

	// Store voice state data and check if both events are ready
	if buffer.setVoiceState(channelID, sessionID) {
		// Both events received, forward to Lavalink
		c.forwardBufferedVoiceEvents(guildID, buffer)
	} else if !c.isPending(guildID) {
		// Channel moves may come without a server update.
		c.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	}

	c.pendingMu.Lock()
	pending := c.pending[guildID]
	c.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(true)
	}
}

func (c *LavalinkAdapter) isPending(guildID snowflake.ID) bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	p, ok := c.pending[guildID]
	return ok && p.needServer
}

// getOrCreateVoiceBuffer returns the voice buffer for a guild, creating one if needed.
func (c *LavalinkAdapter) getOrCreateVoiceBuffer(guildID snowflake.ID) *voiceEventBuffer {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()

	buffer, exists := c.voiceBuffers[guildID]
	if !exists {
		buffer = &voiceEventBuffer{}
		c.voiceBuffers[guildID] = buffer
	}
	return buffer
}

// clearVoiceBuffer removes the voice buffer for a guild.
func (c *LavalinkAdapter) clearVoiceBuffer(guildID snowflake.ID) {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()
	delete(c.voiceBuffers, guildID)
}

// forwardBufferedVoiceEvents sends the buffered voice events to Lavalink.
func (c *LavalinkAdapter) forwardBufferedVoiceEvents(
	guildID snowflake.ID,
	buffer *voiceEventBuffer,
) {
	channelID, sessionID, token, endpoint := buffer.getData()

	slog.Debug("forwarding buffered voice events to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	// Forward to Lavalink in the correct order
	c.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

func (c *LavalinkAdapter) sessionFor(guildID snowflake.ID) *lavalinkSession {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	return c.sessions[guildID]
}

func (c *LavalinkAdapter) forgetSession(guildID snowflake.ID) {
	c.sessionsMu.Lock()
	session := c.sessions[guildID]
	delete(c.sessions, guildID)
	c.sessionsMu.Unlock()

	if session != nil {
		session.markDisconnected()
	}
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)

	if session := c.sessionFor(player.GuildID()); session != nil {
		session.started(event.Track.Encoded)
	}
}

func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	reason := convertEndReason(event.Reason)
	if !reason.ShouldAdvanceQueue() {
		return
	}

	session := c.sessionFor(player.GuildID())
	if session == nil || c.publisher == nil {
		return
	}

	play, ok := session.finished(event.Track.Encoded)
	if !ok {
		return
	}

	c.publisher.PublishPlaybackFinished(domain.PlaybackFinishedEvent{
		GuildID:   player.GuildID(),
		StreamRef: play.streamRef,
		PlayID:    play.id,
		Reason:    reason,
	})
}

func (c *LavalinkAdapter) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)
}

func convertEndReason(reason lavalink.TrackEndReason) domain.TrackEndReason {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return domain.TrackEndFinished
	case lavalink.TrackEndReasonLoadFailed:
		return domain.TrackEndLoadFailed
	case lavalink.TrackEndReasonStopped:
		return domain.TrackEndStopped
	case lavalink.TrackEndReasonReplaced:
		return domain.TrackEndReplaced
	case lavalink.TrackEndReasonCleanup:
		return domain.TrackEndCleanup
	default:
		return domain.TrackEndStopped
	}
}

// trackPlay is one call to Play as seen by Lavalink.
type trackPlay struct {
	streamRef string // as passed to Play
	id        uint64 // as passed to Play
	encoded   string // the track Lavalink plays for streamRef
}

// lavalinkSession is one guild's voice connection backed by a Lavalink player.
//
// A play is pending from Play until Lavalink reports its TrackStart, and
// active from then until its TrackEnd. A TrackEnd arriving while a newer play
// is still pending belongs to the older play, even when both share the same
// encoded track.
type lavalinkSession struct {
	adapter *LavalinkAdapter
	guildID snowflake.ID

	mu        sync.Mutex
	channelID snowflake.ID
	connected bool
	pending   *trackPlay
	active    *trackPlay
}

func (s *lavalinkSession) GuildID() snowflake.ID { return s.guildID }

func (s *lavalinkSession) ChannelID() snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

func (s *lavalinkSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *lavalinkSession) IsPlaying() bool {
	player := s.adapter.link.ExistingPlayer(s.guildID)
	return player != nil && player.Track() != nil && !player.Paused()
}

func (s *lavalinkSession) IsPaused() bool {
	player := s.adapter.link.ExistingPlayer(s.guildID)
	return player != nil && player.Track() != nil && player.Paused()
}

func (s *lavalinkSession) Play(ctx context.Context, streamRef string, playID uint64) error {
	encoded, err := s.adapter.encodedTrack(ctx, streamRef)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pending = &trackPlay{streamRef: streamRef, id: playID, encoded: encoded}
	s.mu.Unlock()

	player := s.adapter.link.Player(s.guildID)

	// Use WithEncodedTrack to avoid userData:null issue
	if err := player.Update(ctx, lavalink.WithEncodedTrack(encoded), lavalink.WithPaused(false)); err != nil {
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
		return fmt.Errorf("failed to play track: %w", err)
	}
	return nil
}

func (s *lavalinkSession) Pause(ctx context.Context) error {
	player := s.adapter.link.Player(s.guildID)
	if err := player.Update(ctx, lavalink.WithPaused(true)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	return nil
}

func (s *lavalinkSession) Resume(ctx context.Context) error {
	player := s.adapter.link.Player(s.guildID)
	if err := player.Update(ctx, lavalink.WithPaused(false)); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	return nil
}

func (s *lavalinkSession) Stop(ctx context.Context) error {
	s.clearTrack()

	player := s.adapter.link.Player(s.guildID)
	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

func (s *lavalinkSession) Volume() int {
	player := s.adapter.link.ExistingPlayer(s.guildID)
	if player == nil {
		return 100
	}
	return player.Volume()
}

func (s *lavalinkSession) SetVolume(ctx context.Context, percent int) error {
	player := s.adapter.link.Player(s.guildID)
	if err := player.Update(ctx, lavalink.WithVolume(percent)); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	return nil
}

func (s *lavalinkSession) MoveTo(ctx context.Context, channelID snowflake.ID) error {
	if err := s.adapter.joinChannel(ctx, s.guildID, channelID, false); err != nil {
		return err
	}
	s.setChannel(channelID)
	return nil
}

func (s *lavalinkSession) Disconnect(ctx context.Context) error {
	s.clearTrack()
	return s.adapter.leaveChannel(ctx, s.guildID)
}

// started promotes the pending play once Lavalink starts its track.
func (s *lavalinkSession) started(encoded string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.pending.encoded != encoded {
		return
	}
	s.active = s.pending
	s.pending = nil
}

// finished matches a natural track end against the active play and returns
// it. The active play is consumed so a duplicate end is reported once.
func (s *lavalinkSession) finished(encoded string) (trackPlay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.encoded != encoded {
		return trackPlay{}, false
	}
	play := *s.active
	s.active = nil
	return play, true
}

func (s *lavalinkSession) clearTrack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.active = nil
}

func (s *lavalinkSession) setChannel(channelID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelID = channelID
}

func (s *lavalinkSession) markDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.pending = nil
	s.active = nil
}

// Ensure LavalinkAdapter implements port interfaces.
var (
	_ ports.VoiceConnector = (*LavalinkAdapter)(nil)
	_ ports.MediaProvider  = (*LavalinkAdapter)(nil)
	_ ports.VoiceSession   = (*lavalinkSession)(nil)
)
