package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
	"github.com/salescoach-team/coaching-engine/internal/usecase/pattern"
	"github.com/salescoach-team/coaching-engine/internal/usecase/sentiment"
	"github.com/salescoach-team/coaching-engine/internal/usecase/suggestion"
	"github.com/salescoach-team/coaching-engine/internal/usecase/talktime"
	"github.com/salescoach-team/coaching-engine/pkg/ai"
)

// fakeConn records every event written to it.
type fakeConn struct {
	mu     sync.Mutex
	events []entities.Event
	closed bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := v.(entities.Event); ok {
		f.events = append(f.events, event)
	}
	return nil
}

func (f *fakeConn) WriteControl(_ int, _ []byte, _ time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) eventsOfType(t entities.EventType) []entities.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Event
	for _, e := range f.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// In-memory repository fakes.

type fakeBuffer struct {
	mu     sync.Mutex
	chunks map[uuid.UUID][]entities.TranscriptChunk
}

func newFakeBuffer() *fakeBuffer {
	return &fakeBuffer{chunks: make(map[uuid.UUID][]entities.TranscriptChunk)}
}

func (f *fakeBuffer) Append(_ context.Context, id uuid.UUID, chunk entities.TranscriptChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[id] = append(f.chunks[id], chunk)
	return nil
}

func (f *fakeBuffer) Snapshot(_ context.Context, id uuid.UUID, _ int) ([]entities.TranscriptChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entities.TranscriptChunk, len(f.chunks[id]))
	copy(out, f.chunks[id])
	return out, nil
}

type fakeTalkTime struct {
	mu     sync.Mutex
	totals map[string]float64
}

func (f *fakeTalkTime) Record(_ context.Context, _ uuid.UUID, speaker string, seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.totals == nil {
		f.totals = make(map[string]float64)
	}
	f.totals[speaker] += seconds
	return nil
}

func (f *fakeTalkTime) Totals(_ context.Context, _ uuid.UUID) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totals, nil
}

type fakeConfigs struct {
	mu     sync.Mutex
	stored map[string]entities.CoachingConfig
}

func newFakeConfigs() *fakeConfigs {
	return &fakeConfigs{stored: make(map[string]entities.CoachingConfig)}
}

func (f *fakeConfigs) Get(_ context.Context, orgID string) (*entities.CoachingConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.stored[orgID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (f *fakeConfigs) Save(_ context.Context, orgID string, cfg entities.CoachingConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[orgID] = cfg
	return nil
}

type fakeSnapshots struct {
	mu    sync.Mutex
	saved map[uuid.UUID]entities.SessionSnapshot
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{saved: make(map[uuid.UUID]entities.SessionSnapshot)}
}

func (f *fakeSnapshots) Save(_ context.Context, snapshot entities.SessionSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[snapshot.ID] = snapshot
	return nil
}

func (f *fakeSnapshots) Get(_ context.Context, id uuid.UUID) (*entities.SessionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.saved[id]
	if !ok {
		return nil, entities.ErrSessionNotFound
	}
	return &snapshot, nil
}

type fakeEventLog struct {
	mu      sync.Mutex
	records []*entities.CoachingEventRecord
}

func (f *fakeEventLog) AppendEvent(_ context.Context, record *entities.CoachingEventRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

func (f *fakeEventLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeEventLog) recordsOfType(eventType entities.EventType) []*entities.CoachingEventRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.CoachingEventRecord
	for _, r := range f.records {
		if r.EventType == string(eventType) {
			out = append(out, r)
		}
	}
	return out
}

// hintedCompleter returns a real suggestion only for on-demand requests
// (which carry a hint); automatic attempts get a decline.
type hintedCompleter struct{}

func (hintedCompleter) GenerateSuggestion(_ context.Context, _ string, hint string) (*ai.SuggestionResult, error) {
	if hint == "" {
		return &ai.SuggestionResult{NoSuggestion: true}, nil
	}
	return &ai.SuggestionResult{
		Type:       "talking_point",
		Content:    "Mention the onboarding time savings.",
		Reasoning:  "The prospect asked about rollout effort.",
		Confidence: 0.9,
		Priority:   "high",
	}, nil
}

type neverClassify struct{}

func (neverClassify) ClassifySentiment(_ context.Context, _ string) (*ai.SentimentResult, error) {
	return nil, errors.New("classifier disabled in test")
}

// fixedClassifier always returns the same sentiment result.
type fixedClassifier struct {
	score float64
}

func (f fixedClassifier) ClassifySentiment(_ context.Context, _ string) (*ai.SentimentResult, error) {
	return &ai.SentimentResult{Score: f.score, Label: "positive", Confidence: 0.9}, nil
}

// countingCompleter tallies every suggestion call and always declines.
type countingCompleter struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCompleter) GenerateSuggestion(_ context.Context, _ string, _ string) (*ai.SuggestionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &ai.SuggestionResult{NoSuggestion: true}, nil
}

func (c *countingCompleter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// blockingCompleter parks the suggestion call until released so tests can
// interleave a session close with an in-flight generation.
type blockingCompleter struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingCompleter() *blockingCompleter {
	return &blockingCompleter{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (b *blockingCompleter) GenerateSuggestion(_ context.Context, _ string, _ string) (*ai.SuggestionResult, error) {
	b.started <- struct{}{}
	<-b.release
	return &ai.SuggestionResult{
		Type:       "talking_point",
		Content:    "Bring up the migration tooling.",
		Reasoning:  "The prospect mentioned switching costs.",
		Confidence: 0.9,
		Priority:   "high",
	}, nil
}

type managerFixture struct {
	manager   *Manager
	conn      *fakeConn
	buffer    *fakeBuffer
	configs   *fakeConfigs
	snapshots *fakeSnapshots
	eventLog  *fakeEventLog
}

func newFixture(t *testing.T) *managerFixture {
	t.Helper()
	return newFixtureWith(t, hintedCompleter{}, neverClassify{})
}

func newFixtureWith(t *testing.T, completer suggestion.Completer, classifier sentiment.Classifier) *managerFixture {
	t.Helper()
	buffer := newFakeBuffer()
	configs := newFakeConfigs()
	snapshots := newFakeSnapshots()
	eventLog := &fakeEventLog{}

	manager := NewManager(
		buffer,
		configs,
		snapshots,
		eventLog,
		talktime.NewAccumulator(&fakeTalkTime{}, talktime.NewHeuristicRoleInferrer(), nil),
		pattern.NewDetector(500*time.Millisecond, 2*time.Second),
		sentiment.NewSampler(classifier, 5, nil),
		suggestion.NewGenerator(completer, 3, 0.7, nil),
		nil,
	)

	return &managerFixture{
		manager:   manager,
		conn:      &fakeConn{},
		buffer:    buffer,
		configs:   configs,
		snapshots: snapshots,
		eventLog:  eventLog,
	}
}

func (fx *managerFixture) open(t *testing.T) *entities.CoachingSession {
	t.Helper()
	sess, err := fx.manager.Open(context.Background(), "meet-1", "org-1", uuid.New(), fx.conn)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	return sess
}

func (fx *managerFixture) send(t *testing.T, sessionID uuid.UUID, msgType entities.MessageType, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"type": msgType, "payload": payload})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := fx.manager.HandleMessage(context.Background(), sessionID, raw); err != nil {
		t.Fatalf("handle %s failed: %v", msgType, err)
	}
}

func TestOpenAnnouncesSession(t *testing.T) {
	fx := newFixture(t)
	sess := fx.open(t)

	if !sess.IsActive {
		t.Fatalf("expected active session")
	}
	if len(fx.conn.eventsOfType(entities.EventSessionStarted)) != 1 {
		t.Fatalf("expected session_started event")
	}
	if fx.manager.Count() != 1 {
		t.Fatalf("expected 1 live session got %d", fx.manager.Count())
	}
}

func TestTranscriptChunkBuffersAndCounts(t *testing.T) {
	fx := newFixture(t)
	sess := fx.open(t)

	fx.send(t, sess.ID, entities.MessageTranscriptChunk, entities.TranscriptChunk{
		Text: "Hello there.", Speaker: "Rep", Timestamp: 1,
	})
	fx.send(t, sess.ID, entities.MessageTranscriptChunk, entities.TranscriptChunk{
		Text: "Hi, thanks for the time.", Speaker: "Prospect", Timestamp: 3,
	})

	chunks, _ := fx.buffer.Snapshot(context.Background(), sess.ID, 0)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 buffered chunks got %d", len(chunks))
	}
	if sess.ChunkCount != 2 {
		t.Fatalf("expected chunk count 2 got %d", sess.ChunkCount)
	}
}

func TestCompetitorAlert(t *testing.T) {
	fx := newFixture(t)
	cfg := entities.DefaultCoachingConfig()
	cfg.Competitors = []string{"Acme"}
	fx.configs.Save(context.Background(), "org-1", cfg)

	sess := fx.open(t)

	fx.send(t, sess.ID, entities.MessageTranscriptChunk, entities.TranscriptChunk{
		Text: "we already talked to acme about this", Speaker: "Prospect", Timestamp: 1,
	})

	alerts := fx.conn.eventsOfType(entities.EventCompetitorAlert)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 competitor alert got %d", len(alerts))
	}
}

func TestPingPong(t *testing.T) {
	fx := newFixture(t)
	sess := fx.open(t)

	fx.send(t, sess.ID, entities.MessagePing, nil)
	if len(fx.conn.eventsOfType(entities.EventPong)) != 1 {
		t.Fatalf("expected pong event")
	}
}

func TestUnknownMessageTypeIgnored(t *testing.T) {
	fx := newFixture(t)
	sess := fx.open(t)

	raw := []byte(`{"type":"telepathy","payload":{}}`)
	if err := fx.manager.HandleMessage(context.Background(), sess.ID, raw); err != nil {
		t.Fatalf("unknown message type must be ignored, got %v", err)
	}
}

func TestOnDemandSuggestion(t *testing.T) {
	fx := newFixture(t)
	sess := fx.open(t)

	for i := 0; i < 3; i++ {
		fx.send(t, sess.ID, entities.MessageTranscriptChunk, entities.TranscriptChunk{
			Text: "How long does rollout usually take?", Speaker: "Prospect", Timestamp: float64(i * 5),
		})
	}

	fx.send(t, sess.ID, entities.MessageRequestSuggestion, map[string]string{"topic": "rollout effort"})

	deadline := time.Now().Add(time.Second)
	for {
		if len(fx.conn.eventsOfType(entities.EventSuggestion)) >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected a suggestion event")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if fx.eventLog.count() < 1 {
		t.Fatalf("expected dispatched suggestion durably logged")
	}
	// On-demand dispatch must not reset the automatic cooldown
	if !sess.LastSuggestionAt.IsZero() {
		t.Fatalf("on-demand dispatch must not touch cooldown state")
	}
}

func TestUpdateConfig(t *testing.T) {
	fx := newFixture(t)
	sess := fx.open(t)

	disabled := false
	update := entities.CoachingConfigUpdate{SentimentMonitoring: &disabled}
	fx.send(t, sess.ID, entities.MessageUpdateConfig, update)

	if len(fx.conn.eventsOfType(entities.EventConfigUpdated)) != 1 {
		t.Fatalf("expected config_updated event")
	}
	stored, _ := fx.configs.Get(context.Background(), "org-1")
	if stored == nil || stored.SentimentMonitoring {
		t.Fatalf("expected persisted config with sentiment monitoring off")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	sess := fx.open(t)

	if err := fx.manager.Close(context.Background(), sess.ID, "test"); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := fx.manager.Close(context.Background(), sess.ID, "test"); !errors.Is(err, entities.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second close, got %v", err)
	}

	if len(fx.conn.eventsOfType(entities.EventSessionEnded)) != 1 {
		t.Fatalf("expected exactly one session_ended event")
	}
	if _, err := fx.snapshots.Get(context.Background(), sess.ID); err != nil {
		t.Fatalf("expected snapshot flushed on close: %v", err)
	}
	if !fx.conn.closed {
		t.Fatalf("expected connection closed")
	}

	// Messages after close fail with a session error
	raw := []byte(`{"type":"ping"}`)
	if err := fx.manager.HandleMessage(context.Background(), sess.ID, raw); !errors.Is(err, entities.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after close, got %v", err)
	}
}

func TestCloseAllDrainsSessions(t *testing.T) {
	fx := newFixture(t)
	fx.open(t)

	conn2 := &fakeConn{}
	if _, err := fx.manager.Open(context.Background(), "meet-2", "org-1", uuid.New(), conn2); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	fx.manager.CloseAll(context.Background(), "server_shutdown")
	if fx.manager.Count() != 0 {
		t.Fatalf("expected all sessions drained, %d left", fx.manager.Count())
	}
}

func TestSentimentSnapshotPersisted(t *testing.T) {
	fx := newFixtureWith(t, hintedCompleter{}, fixedClassifier{score: 0.4})
	sess := fx.open(t)

	for i := 0; i < 5; i++ {
		fx.send(t, sess.ID, entities.MessageTranscriptChunk, entities.TranscriptChunk{
			Text: "This is going really well so far.", Speaker: "Prospect", Timestamp: float64(i * 4),
		})
	}

	if len(fx.conn.eventsOfType(entities.EventSentimentUpdate)) != 1 {
		t.Fatalf("expected one sentiment_update dispatched on the 5th chunk")
	}
	records := fx.eventLog.recordsOfType(entities.EventSentimentUpdate)
	if len(records) != 1 {
		t.Fatalf("expected sentiment snapshot in durable log, got %d records", len(records))
	}
	if records[0].SessionID != sess.ID {
		t.Fatalf("expected record bound to session %s got %s", sess.ID, records[0].SessionID)
	}
}

func TestCloseDiscardsInFlightSuggestion(t *testing.T) {
	completer := newBlockingCompleter()
	fx := newFixtureWith(t, completer, neverClassify{})
	sess := fx.open(t)

	for i := 0; i < 3; i++ {
		fx.buffer.Append(context.Background(), sess.ID, entities.TranscriptChunk{
			Text: "We keep going back and forth on the pricing model.", Speaker: "Prospect", Timestamp: float64(i * 5),
		})
	}

	live, err := fx.manager.live(sess.ID)
	if err != nil {
		t.Fatalf("live lookup failed: %v", err)
	}

	fx.send(t, sess.ID, entities.MessageTranscriptChunk, entities.TranscriptChunk{
		Text: "Switching costs are the main worry.", Speaker: "Prospect", Timestamp: 20,
	})

	select {
	case <-completer.started:
	case <-time.After(time.Second):
		t.Fatalf("expected automatic suggestion call to start")
	}

	if err := fx.manager.Close(context.Background(), sess.ID, "test"); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	close(completer.release)

	deadline := time.Now().Add(time.Second)
	for {
		live.mu.Lock()
		inFlight := live.suggesting
		live.mu.Unlock()
		if !inFlight {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("suggestion goroutine never finished")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if len(fx.conn.eventsOfType(entities.EventSuggestion)) != 0 {
		t.Fatalf("suggestion completed after close must not be dispatched")
	}
	if !sess.LastSuggestionAt.IsZero() {
		t.Fatalf("discarded suggestion must not mutate cooldown state")
	}
	if fx.eventLog.count() != 0 {
		t.Fatalf("discarded suggestion must not be logged, got %d records", fx.eventLog.count())
	}
}

func TestQuestionSuggestionsToggleGatesAutomaticOnly(t *testing.T) {
	completer := &countingCompleter{}
	fx := newFixtureWith(t, completer, neverClassify{})

	cfg := entities.DefaultCoachingConfig()
	cfg.QuestionSuggestions = false
	fx.configs.Save(context.Background(), "org-1", cfg)

	sess := fx.open(t)
	for i := 0; i < 4; i++ {
		fx.send(t, sess.ID, entities.MessageTranscriptChunk, entities.TranscriptChunk{
			Text: "Tell me more about the reporting features.", Speaker: "Prospect", Timestamp: float64(i * 5),
		})
	}

	time.Sleep(50 * time.Millisecond)
	if completer.count() != 0 {
		t.Fatalf("disabled toggle must stop automatic attempts, completer called %d times", completer.count())
	}

	// Explicit client requests are still serviced
	fx.send(t, sess.ID, entities.MessageRequestSuggestion, map[string]string{"topic": "reporting"})
	if completer.count() != 1 {
		t.Fatalf("on-demand request must be serviced, completer called %d times", completer.count())
	}
}

func TestObjectionPatternsFilteredWhenDisabled(t *testing.T) {
	fx := newFixture(t)

	cfg := entities.DefaultCoachingConfig()
	cfg.ObjectionDetection = false
	fx.configs.Save(context.Background(), "org-1", cfg)

	sess := fx.open(t)
	fx.send(t, sess.ID, entities.MessageTranscriptChunk, entities.TranscriptChunk{
		Text: "Honestly the budget is a real concern for us.", Speaker: "Prospect", Timestamp: 1,
	})
	fx.send(t, sess.ID, entities.MessageTranscriptChunk, entities.TranscriptChunk{
		Text: "What does onboarding look like?", Speaker: "Prospect", Timestamp: 8,
	})
	fx.send(t, sess.ID, entities.MessageRequestPatterns, nil)

	events := fx.conn.eventsOfType(entities.EventPatternAnalysis)
	if len(events) != 1 {
		t.Fatalf("expected one pattern_analysis event got %d", len(events))
	}
	analysis, ok := events[0].Payload.(*entities.PatternAnalysis)
	if !ok {
		t.Fatalf("unexpected payload type %T", events[0].Payload)
	}
	questions := 0
	for _, p := range analysis.Patterns {
		if p.Type == entities.PatternObjection {
			t.Fatalf("objection pattern must be filtered when detection is off")
		}
		if p.Type == entities.PatternQuestion {
			questions++
		}
	}
	if questions == 0 {
		t.Fatalf("other patterns must survive the objection filter")
	}
}

func TestTalkTimeRecommendationWithheldWhenAlertsDisabled(t *testing.T) {
	chunk := entities.TranscriptChunk{
		Text: "Let me walk you through the whole deck before questions.", Speaker: "Rep", Timestamp: 1,
	}

	enabled := newFixture(t)
	sess := enabled.open(t)
	enabled.send(t, sess.ID, entities.MessageTranscriptChunk, chunk)
	enabled.send(t, sess.ID, entities.MessageRequestTalkTime, nil)

	events := enabled.conn.eventsOfType(entities.EventTalkTimeAnalysis)
	if len(events) != 1 {
		t.Fatalf("expected one talk_time_analysis event got %d", len(events))
	}
	withAlerts, ok := events[0].Payload.(*entities.TalkTimeAnalysis)
	if !ok {
		t.Fatalf("unexpected payload type %T", events[0].Payload)
	}
	if withAlerts.Recommendation == "" {
		t.Fatalf("expected a recommendation for a 100%% rep monologue")
	}

	disabled := newFixture(t)
	cfg := entities.DefaultCoachingConfig()
	cfg.TalkTimeAlerts = false
	disabled.configs.Save(context.Background(), "org-1", cfg)

	sess = disabled.open(t)
	disabled.send(t, sess.ID, entities.MessageTranscriptChunk, chunk)
	disabled.send(t, sess.ID, entities.MessageRequestTalkTime, nil)

	events = disabled.conn.eventsOfType(entities.EventTalkTimeAnalysis)
	if len(events) != 1 {
		t.Fatalf("expected one talk_time_analysis event got %d", len(events))
	}
	withoutAlerts, ok := events[0].Payload.(*entities.TalkTimeAnalysis)
	if !ok {
		t.Fatalf("unexpected payload type %T", events[0].Payload)
	}
	if withoutAlerts.Recommendation != "" {
		t.Fatalf("expected recommendation withheld, got %q", withoutAlerts.Recommendation)
	}
}

func TestDispatcherDropsAfterClose(t *testing.T) {
	conn := &fakeConn{}
	d := NewDispatcher(conn, nil)

	if err := d.Send(entities.Event{Type: entities.EventPong}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := d.Send(entities.Event{Type: entities.EventPong}); !errors.Is(err, entities.ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed after close, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second close must be a no-op, got %v", err)
	}
	if len(conn.events) != 1 {
		t.Fatalf("expected exactly one delivered event, got %d", len(conn.events))
	}
}
