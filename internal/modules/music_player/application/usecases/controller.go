package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

// Keys of the durable store.
const (
	keyMusicChannels      = "music_channels"
	keyControllerMessages = "controller_messages"
)

// IdleDisconnectNotice is posted to the music channel by the watchdog.
const IdleDisconnectNotice = "Disconnecting due to inactivity..."

const defaultVolume = 100

// ControllerSync keeps one controller message per guild in step with the
// guild's playback state and persists where it lives.
//
// Render failures never reach the caller; a message that disappeared is
// dropped from the registry and recreated on the next explicit request.
type ControllerSync struct {
	store     ports.KeyValueStore
	transport ports.MessageTransport
	queues    domain.QueueStore
	voices    *VoiceRegistry

	locks guildLocks

	// persistMu orders snapshot and write of the shared store keys so an
	// older snapshot never lands after a newer one.
	persistMu sync.Mutex

	mu            sync.Mutex
	records       map[snowflake.ID]domain.ControllerRecord
	musicChannels map[snowflake.ID]snowflake.ID
	saved         map[snowflake.ID]domain.ControllerRecord // loaded, not yet restored
}

// NewControllerSync creates a new ControllerSync.
func NewControllerSync(
	store ports.KeyValueStore,
	transport ports.MessageTransport,
	queues domain.QueueStore,
	voices *VoiceRegistry,
) *ControllerSync {
	return &ControllerSync{
		store:         store,
		transport:     transport,
		queues:        queues,
		voices:        voices,
		records:       make(map[snowflake.ID]domain.ControllerRecord),
		musicChannels: make(map[snowflake.ID]snowflake.ID),
		saved:         make(map[snowflake.ID]domain.ControllerRecord),
	}
}

// Load reads music channels and controller messages from the durable store.
func (c *ControllerSync) Load(ctx context.Context) error {
	channels, err := c.loadIDMap(ctx, keyMusicChannels)
	if err != nil {
		return err
	}
	messages, err := c.loadIDMap(ctx, keyControllerMessages)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for guildID, channelID := range channels {
		c.musicChannels[guildID] = channelID
		if messageID, ok := messages[guildID]; ok {
			c.saved[guildID] = domain.ControllerRecord{
				GuildID:   guildID,
				ChannelID: channelID,
				MessageID: messageID,
			}
		}
	}

	slog.Info("loaded controller records",
		"channels", len(channels),
		"controllers", len(c.saved),
	)
	return nil
}

// RestoreAll re-attaches controls to every loaded controller message.
// Messages that no longer exist are dropped silently. A guild that got a new
// controller while restoring keeps the new one.
func (c *ControllerSync) RestoreAll(ctx context.Context) {
	c.mu.Lock()
	saved := c.saved
	c.saved = make(map[snowflake.ID]domain.ControllerRecord)
	c.mu.Unlock()

	for guildID, record := range saved {
		if c.restore(ctx, record) {
			c.Update(ctx, guildID)
		}
	}

	if err := c.persist(ctx); err != nil {
		slog.Error("failed to persist restored controllers", "error", err)
	}
}

// restore re-registers one saved record under the guild lock and reports
// whether its message is known to exist.
func (c *ControllerSync) restore(ctx context.Context, record domain.ControllerRecord) bool {
	unlock := c.locks.lock(record.GuildID)
	defer unlock()

	if _, live := c.Record(record.GuildID); live {
		slog.Debug("controller replaced before restore, skipping",
			"guild", record.GuildID,
		)
		return false
	}

	err := c.transport.FetchMessage(ctx, record.ChannelID, record.MessageID)
	if errors.Is(err, ports.ErrMessageNotFound) {
		slog.Info("dropping controller whose message is gone",
			"guild", record.GuildID,
			"channel", record.ChannelID,
		)
		return false
	}
	if err != nil {
		slog.Warn("failed to fetch controller message, keeping record",
			"guild", record.GuildID,
			"error", err,
		)
	}

	c.mu.Lock()
	c.records[record.GuildID] = record
	c.mu.Unlock()
	return err == nil
}

// ShowControllerOutput contains the result of CreateOrUpdate.
type ShowControllerOutput struct {
	Record  domain.ControllerRecord
	Created bool
}

// CreateOrUpdate edits the guild's controller in place when it lives in
// channelID, and otherwise posts a new one after deleting the old message.
func (c *ControllerSync) CreateOrUpdate(
	ctx context.Context,
	guildID, channelID snowflake.ID,
) (*ShowControllerOutput, error) {
	unlock := c.locks.lock(guildID)
	defer unlock()

	c.adoptSaved(guildID)
	state := c.Render(guildID)

	if record, ok := c.Record(guildID); ok {
		if record.ChannelID == channelID {
			err := c.transport.EditController(ctx, record, state)
			if err == nil {
				return &ShowControllerOutput{Record: record}, nil
			}
			if !errors.Is(err, ports.ErrMessageNotFound) {
				return nil, fmt.Errorf("failed to update controller: %w", err)
			}
		} else {
			c.deleteMessage(ctx, record)
		}
		c.dropRecord(guildID)
	}

	record, err := c.send(ctx, guildID, channelID, state)
	if err != nil {
		return nil, err
	}
	return &ShowControllerOutput{Record: record, Created: true}, nil
}

// SetMusicChannel makes channelID the guild's music channel, replacing any
// existing controller with a fresh one there.
func (c *ControllerSync) SetMusicChannel(
	ctx context.Context,
	guildID, channelID snowflake.ID,
) (*ShowControllerOutput, error) {
	unlock := c.locks.lock(guildID)
	defer unlock()

	c.adoptSaved(guildID)
	if record, ok := c.Record(guildID); ok {
		c.deleteMessage(ctx, record)
		c.dropRecord(guildID)
	}

	record, err := c.send(ctx, guildID, channelID, c.Render(guildID))
	if err != nil {
		return nil, err
	}
	return &ShowControllerOutput{Record: record, Created: true}, nil
}

// Update re-renders the guild's controller if it has one.
func (c *ControllerSync) Update(ctx context.Context, guildID snowflake.ID) {
	unlock := c.locks.lock(guildID)
	defer unlock()

	record, ok := c.Record(guildID)
	if !ok {
		return
	}

	err := c.transport.EditController(ctx, record, c.Render(guildID))
	switch {
	case errors.Is(err, ports.ErrMessageNotFound):
		slog.Info("controller message is gone, dropping record",
			"guild", guildID,
			"channel", record.ChannelID,
		)
		c.dropRecord(guildID)
		if err := c.persist(ctx); err != nil {
			slog.Error("failed to persist controllers", "guild", guildID, "error", err)
		}
	case err != nil:
		slog.Warn("failed to update controller",
			"guild", guildID,
			"error", err,
		)
	}
}

// Render computes what the guild's controller should display.
func (c *ControllerSync) Render(guildID snowflake.ID) domain.RenderedState {
	snapshot := c.queues.Snapshot(guildID)
	session := c.voices.Get(guildID)

	state := domain.RenderedState{
		Status:      statusOf(session),
		Repeat:      snapshot.Repeat,
		Volume:      defaultVolume,
		QueueLength: len(snapshot.Pending),
	}
	if session != nil && session.IsConnected() {
		state.Volume = session.Volume()
	}
	if snapshot.Current != nil {
		state.Title = snapshot.Current.Title
		state.WebpageRef = snapshot.Current.WebpageRef
		state.SourceID = snapshot.Current.SourceID
		state.DurationLabel = snapshot.Current.FormattedDuration()
	}
	return state
}

// Record returns the guild's live controller record.
func (c *ControllerSync) Record(guildID snowflake.ID) (domain.ControllerRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.records[guildID]
	return record, ok
}

// MusicChannel returns the channel the guild's controller lives in.
func (c *ControllerSync) MusicChannel(guildID snowflake.ID) (snowflake.ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	channelID, ok := c.musicChannels[guildID]
	return channelID, ok
}

// NotifyIdleDisconnect posts the inactivity notice to the music channel.
func (c *ControllerSync) NotifyIdleDisconnect(ctx context.Context, guildID snowflake.ID) {
	channelID, ok := c.MusicChannel(guildID)
	if !ok {
		return
	}
	if err := c.transport.SendNotice(ctx, channelID, IdleDisconnectNotice); err != nil {
		slog.Warn("failed to send idle notice",
			"guild", guildID,
			"error", err,
		)
	}
}

// send posts a new controller and persists its record. The caller holds the
// guild lock.
func (c *ControllerSync) send(
	ctx context.Context,
	guildID, channelID snowflake.ID,
	state domain.RenderedState,
) (domain.ControllerRecord, error) {
	messageID, err := c.transport.SendController(ctx, channelID, state)
	if err != nil {
		return domain.ControllerRecord{}, fmt.Errorf("failed to send controller: %w", err)
	}

	record := domain.ControllerRecord{
		GuildID:   guildID,
		ChannelID: channelID,
		MessageID: messageID,
	}

	c.mu.Lock()
	c.records[guildID] = record
	c.musicChannels[guildID] = channelID
	c.mu.Unlock()

	if err := c.persist(ctx); err != nil {
		slog.Error("failed to persist controllers", "guild", guildID, "error", err)
	}

	slog.Info("controller created",
		"guild", guildID,
		"channel", channelID,
		"message", messageID,
	)
	return record, nil
}

func (c *ControllerSync) deleteMessage(ctx context.Context, record domain.ControllerRecord) {
	err := c.transport.DeleteMessage(ctx, record.ChannelID, record.MessageID)
	if err != nil && !errors.Is(err, ports.ErrMessageNotFound) {
		slog.Warn("failed to delete old controller",
			"guild", record.GuildID,
			"error", err,
		)
	}
}

// adoptSaved makes a loaded but not yet restored record live so the caller
// replaces it instead of leaving its message behind. The caller holds the
// guild lock.
func (c *ControllerSync) adoptSaved(guildID snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.saved[guildID]
	if !ok {
		return
	}
	delete(c.saved, guildID)
	if _, live := c.records[guildID]; !live {
		c.records[guildID] = record
	}
}

// dropRecord forgets the guild's controller and its music channel.
func (c *ControllerSync) dropRecord(guildID snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, guildID)
	delete(c.musicChannels, guildID)
}

// persist writes the current registries to the durable store.
func (c *ControllerSync) persist(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	channels := make(map[string]string, len(c.musicChannels))
	for guildID, channelID := range c.musicChannels {
		channels[guildID.String()] = channelID.String()
	}
	messages := make(map[string]string, len(c.records))
	for guildID, record := range c.records {
		messages[guildID.String()] = record.MessageID.String()
	}
	c.mu.Unlock()

	if err := c.storeIDMap(ctx, keyMusicChannels, channels); err != nil {
		return err
	}
	return c.storeIDMap(ctx, keyControllerMessages, messages)
}

func (c *ControllerSync) storeIDMap(ctx context.Context, key string, m map[string]string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.store.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (c *ControllerSync) loadIDMap(ctx context.Context, key string) (map[snowflake.ID]snowflake.ID, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	result := make(map[snowflake.ID]snowflake.ID)
	if !ok || raw == "" {
		return result, nil
	}

	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	for k, v := range m {
		guildID, err := snowflake.Parse(k)
		if err != nil {
			slog.Warn("skipping invalid guild id", "key", key, "value", k)
			continue
		}
		id, err := snowflake.Parse(v)
		if err != nil {
			slog.Warn("skipping invalid id", "key", key, "guild", guildID, "value", v)
			continue
		}
		result[guildID] = id
	}
	return result, nil
}

// statusOf derives the playback status shown on the controller.
func statusOf(session ports.VoiceSession) domain.PlaybackStatus {
	switch {
	case session == nil || !session.IsConnected():
		return domain.StatusDisconnected
	case session.IsPaused():
		return domain.StatusPaused
	case session.IsPlaying():
		return domain.StatusPlaying
	default:
		return domain.StatusConnectedIdle
	}
}
