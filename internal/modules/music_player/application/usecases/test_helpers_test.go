package usecases

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

func mockSong(id string) domain.Song {
	return domain.Song{
		Title:      "Song " + id,
		StreamRef:  "stream-" + id,
		WebpageRef: "https://www.youtube.com/watch?v=" + id,
		Duration:   3 * time.Minute,
		SourceID:   id,
	}
}

func mockInfo(id string) *ports.MediaInfo {
	return &ports.MediaInfo{
		ID:         id,
		Title:      "Song " + id,
		StreamURL:  "stream-" + id,
		WebpageURL: "https://www.youtube.com/watch?v=" + id,
		Duration:   3 * time.Minute,
	}
}

// mockQueueStore backs each guild with a domain.GuildQueue.
type mockQueueStore struct {
	mu          sync.Mutex
	queues      map[snowflake.ID]*domain.GuildQueue
	selectCalls int
}

func newMockQueueStore() *mockQueueStore {
	return &mockQueueStore{queues: make(map[snowflake.ID]*domain.GuildQueue)}
}

func (m *mockQueueStore) queue(guildID snowflake.ID) *domain.GuildQueue {
	q, ok := m.queues[guildID]
	if !ok {
		q = domain.NewGuildQueue()
		m.queues[guildID] = q
	}
	return q
}

func (m *mockQueueStore) Enqueue(guildID snowflake.ID, song domain.Song) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue(guildID).Enqueue(song)
}

func (m *mockQueueStore) EnqueueAll(guildID snowflake.ID, songs []domain.Song) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue(guildID).EnqueueAll(songs)
}

func (m *mockQueueStore) DequeueNext(guildID snowflake.ID) (domain.Song, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue(guildID).DequeueNext()
}

func (m *mockQueueStore) PeekCurrent(guildID snowflake.ID) (domain.Song, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue(guildID).Current()
}

func (m *mockQueueStore) SetCurrent(guildID snowflake.ID, song *domain.Song) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue(guildID).SetCurrent(song)
}

func (m *mockQueueStore) SelectNext(guildID snowflake.ID) (domain.Song, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selectCalls++
	return m.queue(guildID).SelectNext()
}

func (m *mockQueueStore) ClearQueue(guildID snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue(guildID).ClearQueue()
}

func (m *mockQueueStore) ClearAll(guildID snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue(guildID).ClearAll()
}

func (m *mockQueueStore) ToggleRepeat(guildID snowflake.ID) domain.RepeatMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue(guildID).ToggleRepeat()
}

func (m *mockQueueStore) Snapshot(guildID snowflake.ID) domain.QueueSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue(guildID)
	snapshot := domain.QueueSnapshot{
		Pending: q.Pending(),
		Repeat:  q.RepeatMode(),
	}
	if current, ok := q.Current(); ok {
		snapshot.Current = &current
	}
	return snapshot
}

func (m *mockQueueStore) setRepeat(guildID snowflake.ID, mode domain.RepeatMode) {
	for m.Snapshot(guildID).Repeat != mode {
		m.ToggleRepeat(guildID)
	}
}

type mockVoiceSession struct {
	mu        sync.Mutex
	guildID   snowflake.ID
	channelID snowflake.ID
	connected bool
	playing   bool
	paused    bool
	volume    int

	played       []string
	stopCalls    int
	disconnected bool

	playErr       error
	playErrFor    map[string]error
	pauseErr      error
	resumeErr     error
	moveErr       error
	disconnectErr error
}

func newMockVoiceSession(guildID, channelID snowflake.ID) *mockVoiceSession {
	return &mockVoiceSession{
		guildID:   guildID,
		channelID: channelID,
		connected: true,
		volume:    100,
	}
}

func (m *mockVoiceSession) GuildID() snowflake.ID { return m.guildID }

func (m *mockVoiceSession) ChannelID() snowflake.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channelID
}

func (m *mockVoiceSession) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockVoiceSession) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing && !m.paused
}

func (m *mockVoiceSession) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *mockVoiceSession) Play(_ context.Context, streamRef string, _ uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.playErrFor[streamRef]; err != nil {
		return err
	}
	if m.playErr != nil {
		return m.playErr
	}
	m.played = append(m.played, streamRef)
	m.playing = true
	m.paused = false
	return nil
}

func (m *mockVoiceSession) Pause(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pauseErr != nil {
		return m.pauseErr
	}
	m.paused = true
	return nil
}

func (m *mockVoiceSession) Resume(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resumeErr != nil {
		return m.resumeErr
	}
	m.paused = false
	return nil
}

func (m *mockVoiceSession) Stop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	m.playing = false
	m.paused = false
	return nil
}

func (m *mockVoiceSession) Volume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *mockVoiceSession) SetVolume(_ context.Context, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = percent
	return nil
}

func (m *mockVoiceSession) MoveTo(_ context.Context, channelID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.moveErr != nil {
		return m.moveErr
	}
	m.channelID = channelID
	return nil
}

func (m *mockVoiceSession) Disconnect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnected = true
	m.connected = false
	m.playing = false
	m.paused = false
	return m.disconnectErr
}

// finish simulates the transport ending the current stream on its own.
func (m *mockVoiceSession) finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.paused = false
}

func (m *mockVoiceSession) lastPlayed() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.played) == 0 {
		return ""
	}
	return m.played[len(m.played)-1]
}

func (m *mockVoiceSession) playedRefs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.played...)
}

type mockConnector struct {
	session    *mockVoiceSession
	connectErr error
	calls      int
}

func (m *mockConnector) Connect(
	_ context.Context,
	guildID, channelID snowflake.ID,
) (ports.VoiceSession, error) {
	m.calls++
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	if m.session == nil {
		m.session = newMockVoiceSession(guildID, channelID)
	}
	m.session.channelID = channelID
	return m.session, nil
}

type mockVoiceStateProvider struct {
	mu       sync.Mutex
	channels map[snowflake.ID]snowflake.ID // user -> channel
	humans   map[snowflake.ID]int          // channel -> humans
}

func newMockVoiceStateProvider() *mockVoiceStateProvider {
	return &mockVoiceStateProvider{
		channels: make(map[snowflake.ID]snowflake.ID),
		humans:   make(map[snowflake.ID]int),
	}
}

func (m *mockVoiceStateProvider) UserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	channelID, ok := m.channels[userID]
	return channelID, ok
}

func (m *mockVoiceStateProvider) HumanCount(_, channelID snowflake.ID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.humans[channelID]
}

func (m *mockVoiceStateProvider) setHumans(channelID snowflake.ID, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.humans[channelID] = n
}

// mockMediaProvider answers lookups from a map keyed by reference.
// References missing from the map yield ErrMediaNotFound.
type mockMediaProvider struct {
	mu      sync.Mutex
	infos   map[string]*ports.MediaInfo
	errs    map[string]error
	lookups []string
}

func newMockMediaProvider() *mockMediaProvider {
	return &mockMediaProvider{
		infos: make(map[string]*ports.MediaInfo),
		errs:  make(map[string]error),
	}
}

// add registers a song under its webpage URL and under its bare id.
func (m *mockMediaProvider) add(id string) {
	info := mockInfo(id)
	m.infos[info.WebpageURL] = info
	m.infos[id] = info
}

func (m *mockMediaProvider) Lookup(_ context.Context, reference string) (*ports.MediaInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, reference)
	if err := m.errs[reference]; err != nil {
		return nil, err
	}
	info, ok := m.infos[reference]
	if !ok {
		return nil, ports.ErrMediaNotFound
	}
	copied := *info
	return &copied, nil
}

type mockSuggester struct {
	suggestions []ports.Suggestion
	err         error
	gotQuery    string
	gotLimit    int
}

func (m *mockSuggester) Suggest(_ context.Context, query string, limit int) ([]ports.Suggestion, error) {
	m.gotQuery = query
	m.gotLimit = limit
	return m.suggestions, m.err
}

type mockControllerUpdater struct {
	mu      sync.Mutex
	updates []snowflake.ID
}

func (m *mockControllerUpdater) Update(_ context.Context, guildID snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, guildID)
}

func (m *mockControllerUpdater) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

type mockIdleTimer struct {
	mu      sync.Mutex
	started []snowflake.ID
	cleared []snowflake.ID
}

func (m *mockIdleTimer) StartTimer(guildID snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, guildID)
}

func (m *mockIdleTimer) startedFor(guildID snowflake.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.started, guildID)
}

func (m *mockIdleTimer) ClearTimer(guildID snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, guildID)
}

type mockDisconnector struct {
	mu    sync.Mutex
	calls []snowflake.ID
	err   error
}

func (m *mockDisconnector) Leave(_ context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, guildID)
	return m.err
}

type mockIdleNotifier struct {
	notified []snowflake.ID
}

func (m *mockIdleNotifier) NotifyIdleDisconnect(_ context.Context, guildID snowflake.ID) {
	m.notified = append(m.notified, guildID)
}

type sentController struct {
	channelID snowflake.ID
	messageID snowflake.ID
	state     domain.RenderedState
}

type mockTransport struct {
	nextMessageID snowflake.ID
	sent          []sentController
	edited        []domain.ControllerRecord
	lastState     domain.RenderedState
	fetched       []snowflake.ID
	deleted       []snowflake.ID
	notices       []string

	sendErr   error
	editErr   error
	fetchErr  map[snowflake.ID]error // keyed by message ID
	deleteErr error
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		nextMessageID: 1000,
		fetchErr:      make(map[snowflake.ID]error),
	}
}

func (m *mockTransport) SendController(
	_ context.Context,
	channelID snowflake.ID,
	state domain.RenderedState,
) (snowflake.ID, error) {
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.nextMessageID++
	m.sent = append(m.sent, sentController{channelID: channelID, messageID: m.nextMessageID, state: state})
	m.lastState = state
	return m.nextMessageID, nil
}

func (m *mockTransport) EditController(
	_ context.Context,
	record domain.ControllerRecord,
	state domain.RenderedState,
) error {
	if m.editErr != nil {
		return m.editErr
	}
	m.edited = append(m.edited, record)
	m.lastState = state
	return nil
}

func (m *mockTransport) FetchMessage(_ context.Context, _, messageID snowflake.ID) error {
	m.fetched = append(m.fetched, messageID)
	return m.fetchErr[messageID]
}

func (m *mockTransport) DeleteMessage(_ context.Context, _, messageID snowflake.ID) error {
	m.deleted = append(m.deleted, messageID)
	return m.deleteErr
}

func (m *mockTransport) SendNotice(_ context.Context, _ snowflake.ID, text string) error {
	m.notices = append(m.notices, text)
	return nil
}

type mockStore struct {
	data   map[string]string
	getErr error
	setErr error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockStore) Set(_ context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockStore) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *mockStore) GetAll(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

// fakeTimer is a manually fired replacement for time.AfterFunc.
type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) afterFunc(d time.Duration, f func()) stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

// playbackFixture wires a PlaybackService to mocks with a connected session.
type playbackFixture struct {
	guildID    snowflake.ID
	queues     *mockQueueStore
	session    *mockVoiceSession
	voices     *VoiceRegistry
	voiceState *mockVoiceStateProvider
	provider   *mockMediaProvider
	controller *mockControllerUpdater
	timer      *mockIdleTimer
	service    *PlaybackService
}

func newPlaybackFixture(songIDs ...string) *playbackFixture {
	f := &playbackFixture{
		guildID:    snowflake.ID(1),
		queues:     newMockQueueStore(),
		provider:   newMockMediaProvider(),
		controller: &mockControllerUpdater{},
		timer:      &mockIdleTimer{},
	}
	f.session = newMockVoiceSession(f.guildID, snowflake.ID(10))
	f.voiceState = newMockVoiceStateProvider()
	f.voices = NewVoiceRegistry(&mockConnector{}, f.voiceState)
	f.voices.Set(f.guildID, f.session)

	for _, id := range songIDs {
		f.provider.add(id)
		f.queues.Enqueue(f.guildID, mockSong(id))
	}

	f.service = NewPlaybackService(
		f.queues,
		f.voices,
		NewStreamResolver(f.provider),
		f.controller,
		f.timer,
	)
	return f
}

func (f *playbackFixture) current() (domain.Song, bool) {
	return f.queues.PeekCurrent(f.guildID)
}

func (f *playbackFixture) finishEvent() domain.PlaybackFinishedEvent {
	return domain.PlaybackFinishedEvent{
		GuildID:   f.guildID,
		StreamRef: f.session.lastPlayed(),
		PlayID:    f.service.playingID(f.guildID),
		Reason:    domain.TrackEndFinished,
	}
}
