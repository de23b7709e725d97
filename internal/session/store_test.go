package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benvon/sculptor/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type recordedCall struct {
	op      string
	id      uuid.UUID
	columns map[string]any
}

type mockMirror struct {
	mu        sync.Mutex
	calls     []recordedCall
	insertErr error
	updateErr error
	block     chan struct{}
}

var _ Mirror = (*mockMirror)(nil)

func (m *mockMirror) wait() {
	if m.block != nil {
		<-m.block
	}
}

func (m *mockMirror) InsertSession(_ context.Context, s *models.ChatSession) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedCall{op: "insert", id: s.ID})
	return m.insertErr
}

func (m *mockMirror) UpdateSession(_ context.Context, _, id uuid.UUID, columns map[string]any) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedCall{op: "update", id: id, columns: columns})
	return m.updateErr
}

func (m *mockMirror) DeleteSession(_ context.Context, _, id uuid.UUID) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedCall{op: "delete", id: id})
	return nil
}

func (m *mockMirror) recorded() []recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedCall, len(m.calls))
	copy(out, m.calls)
	return out
}

type mockFetcher struct {
	sessions []*models.ChatSession
	err      error
}

func (f *mockFetcher) ListSessions(_ context.Context, _ uuid.UUID) ([]*models.ChatSession, error) {
	return f.sessions, f.err
}

func newTestStore(t *testing.T, mirror Mirror) *Store {
	t.Helper()
	s := NewStore(uuid.New(), mirror, zap.NewNop())
	t.Cleanup(s.Close)
	return s
}

func flush(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}

func TestDefaultTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		typ      models.SessionType
		ctx      *models.InitialContext
		expected string
	}{
		{"no context", models.SessionTypeResume, nil, "New Resume"},
		{"title and company", models.SessionTypeCoverLetter, &models.InitialContext{JobTitle: "SRE", Company: "Acme"}, "SRE at Acme"},
		{"title only", models.SessionTypeResume, &models.InitialContext{JobTitle: " Go Engineer "}, "Go Engineer"},
		{"company only", models.SessionTypeResume, &models.InitialContext{Company: "Acme"}, "Acme"},
		{"blank context", models.SessionTypeCareerCopilot, &models.InitialContext{JobTitle: "  "}, "New Career Copilot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DefaultTitle(tt.typ, tt.ctx); got != tt.expected {
				t.Errorf("Expected title %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestStore_CreatePrependsAndActivates(t *testing.T) {
	t.Parallel()

	mirror := &mockMirror{}
	s := newTestStore(t, mirror)

	first, err := s.Create(models.SessionTypeResume, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := s.Create(models.SessionTypeCoverLetter, &models.InitialContext{JobDescription: "Build APIs"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if first == second {
		t.Fatal("Expected unique session ids")
	}

	list := s.List()
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Fatalf("Expected newest session first, got %+v", list)
	}
	if s.ActiveID() != second {
		t.Errorf("Expected newest session to be active")
	}
	if list[0].JobDescription == nil || *list[0].JobDescription != "Build APIs" {
		t.Errorf("Expected job description to be carried from initial context")
	}
	if len(list[0].Messages) != 0 {
		t.Errorf("Expected empty message list, got %d", len(list[0].Messages))
	}

	flush(t, s)
	calls := mirror.recorded()
	if len(calls) != 2 || calls[0].op != "insert" || calls[0].id != first || calls[1].id != second {
		t.Errorf("Expected inserts in creation order, got %+v", calls)
	}
}

func TestStore_CreateRejectsUnknownType(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	if _, err := s.Create(models.SessionType("memo"), nil); !errors.Is(err, ErrInvalidType) {
		t.Errorf("Expected ErrInvalidType, got %v", err)
	}
	if len(s.List()) != 0 {
		t.Error("Expected no session to be created")
	}
}

func TestStore_RemoteFailureKeepsLocalState(t *testing.T) {
	t.Parallel()

	mirror := &mockMirror{insertErr: errors.New("connection refused"), updateErr: errors.New("timeout")}
	s := newTestStore(t, mirror)

	id, err := s.Create(models.SessionTypeResume, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !s.Rename(id, "Renamed") {
		t.Fatal("Expected rename to succeed locally")
	}
	flush(t, s)

	got, ok := s.Get(id)
	if !ok || got.Title != "Renamed" {
		t.Errorf("Expected local state to survive remote failures, got %+v", got)
	}
}

func TestStore_UpdateIsVisibleImmediately(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	mirror := &mockMirror{block: block}
	s := newTestStore(t, mirror)
	defer close(block)

	id, _ := s.Create(models.SessionTypeResume, nil)
	doc := "# Jane Doe"
	s.Update(id, Patch{FinalResume: &doc})

	got, ok := s.Get(id)
	if !ok {
		t.Fatal("Expected session to exist")
	}
	if got.FinalResume == nil || *got.FinalResume != doc {
		t.Errorf("Expected final document to be visible before remote write completes")
	}
	if !got.InPreview() {
		t.Error("Expected session to be in preview")
	}
}

func TestStore_UpdateSendsOnlyWhitelistedColumns(t *testing.T) {
	t.Parallel()

	mirror := &mockMirror{}
	s := newTestStore(t, mirror)
	id, _ := s.Create(models.SessionTypeResume, nil)

	title := "Staff Engineer"
	resumeText := "override"
	s.Update(id, Patch{
		Title:      &title,
		ResumeText: &resumeText,
		StylePrefs: &models.StylePrefs{FontFamily: "Georgia"},
	})
	s.Update(id, Patch{StylePrefs: &models.StylePrefs{Bullet: "-"}})
	flush(t, s)

	var updates []recordedCall
	for _, c := range mirror.recorded() {
		if c.op == "update" {
			updates = append(updates, c)
		}
	}
	if len(updates) != 1 {
		t.Fatalf("Expected exactly one remote update, got %d", len(updates))
	}
	cols := updates[0].columns
	if len(cols) != 1 || cols["title"] != title {
		t.Errorf("Expected only the title column, got %v", cols)
	}

	got, _ := s.Get(id)
	if got.ResumeText == nil || *got.ResumeText != resumeText {
		t.Error("Expected local-only field to be updated locally")
	}
	style := got.EffectiveStyle()
	if style.FontFamily != "Georgia" || style.Bullet != "-" {
		t.Errorf("Expected style prefs to merge, got %+v", style)
	}
}

func TestStore_ClearFinalResumeSendsNull(t *testing.T) {
	t.Parallel()

	mirror := &mockMirror{}
	s := newTestStore(t, mirror)
	id, _ := s.Create(models.SessionTypeResume, nil)

	doc := "# Doc"
	s.Update(id, Patch{FinalResume: &doc})
	s.Update(id, Patch{ClearFinalResume: true})
	flush(t, s)

	got, _ := s.Get(id)
	if got.InPreview() {
		t.Error("Expected preview state to be cleared")
	}
	calls := mirror.recorded()
	last := calls[len(calls)-1]
	v, ok := last.columns["final_resume"]
	if !ok {
		t.Fatalf("Expected final_resume column, got %v", last.columns)
	}
	if v != nil {
		if p, isPtr := v.(*string); !isPtr || p != nil {
			t.Errorf("Expected null final_resume, got %#v", v)
		}
	}
}

func TestStore_StaleTargetsAreNoOps(t *testing.T) {
	t.Parallel()

	mirror := &mockMirror{}
	s := newTestStore(t, mirror)
	missing := uuid.New()
	title := "x"

	if s.Update(missing, Patch{Title: &title}) {
		t.Error("Expected update of missing session to report false")
	}
	if s.Delete(missing) {
		t.Error("Expected delete of missing session to report false")
	}
	if s.AppendMessage(missing, models.NewMessage(models.RoleUser, "hi")) {
		t.Error("Expected append to missing session to report false")
	}
	id, _ := s.Create(models.SessionTypeResume, nil)
	if s.SetMessageContent(id, uuid.New(), "text") {
		t.Error("Expected update of missing message to report false")
	}
	flush(t, s)

	for _, c := range mirror.recorded() {
		if c.op != "insert" {
			t.Errorf("Expected no remote writes for stale targets, got %+v", c)
		}
	}
}

func TestStore_DeleteClearsActive(t *testing.T) {
	t.Parallel()

	mirror := &mockMirror{}
	s := newTestStore(t, mirror)
	keep, _ := s.Create(models.SessionTypeResume, nil)
	drop, _ := s.Create(models.SessionTypeCoverLetter, nil)

	if !s.Delete(drop) {
		t.Fatal("Expected delete to succeed")
	}
	if s.ActiveID() != uuid.Nil {
		t.Error("Expected active id to be cleared")
	}
	if _, ok := s.Active(); ok {
		t.Error("Expected no active session")
	}
	if _, ok := s.Get(keep); !ok {
		t.Error("Expected other session to remain")
	}

	s.SetActive(keep)
	if s.Delete(drop) {
		t.Error("Expected second delete to report false")
	}
	if s.ActiveID() != keep {
		t.Error("Expected active id to be untouched when deleting another session")
	}

	flush(t, s)
	calls := mirror.recorded()
	if calls[len(calls)-1].op != "delete" || calls[len(calls)-1].id != drop {
		t.Errorf("Expected remote delete, got %+v", calls)
	}
}

func TestStore_DanglingActiveIsNoActive(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	s.SetActive(uuid.New())

	if _, ok := s.Active(); ok {
		t.Error("Expected dangling active id to resolve to no active session")
	}
}

func TestStore_MessagesSyncButStagingIsLocal(t *testing.T) {
	t.Parallel()

	mirror := &mockMirror{}
	s := newTestStore(t, mirror)
	id, _ := s.Create(models.SessionTypeResume, nil)

	user := models.NewMessage(models.RoleUser, "Hi")
	placeholder := models.NewMessage(models.RoleAssistant, "")
	s.AppendMessage(id, user)
	s.StageMessage(id, placeholder)
	s.SetMessageContent(id, placeholder.ID, "Hel")
	s.SetMessageContent(id, placeholder.ID, "Hello")
	s.SyncMessages(id)
	flush(t, s)

	var updates []recordedCall
	for _, c := range mirror.recorded() {
		if c.op == "update" {
			updates = append(updates, c)
		}
	}
	if len(updates) != 2 {
		t.Fatalf("Expected two message syncs, got %d", len(updates))
	}
	final, ok := updates[1].columns["messages"].([]models.Message)
	if !ok {
		t.Fatalf("Expected messages column, got %T", updates[1].columns["messages"])
	}
	if len(final) != 2 || final[1].Content != "Hello" {
		t.Errorf("Expected finalized message list, got %+v", final)
	}

	first, ok := updates[0].columns["messages"].([]models.Message)
	if !ok || len(first) != 1 {
		t.Errorf("Expected first sync to carry only the user message, got %+v", updates[0].columns["messages"])
	}
}

func TestStore_LocalOnlyMode(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	if !s.LocalOnly() {
		t.Fatal("Expected local-only store")
	}
	id, err := s.Create(models.SessionTypeResume, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !s.Rename(id, "Local") {
		t.Error("Expected rename to succeed")
	}
	if err := s.Flush(context.Background()); err != nil {
		t.Errorf("Expected flush to be a no-op, got %v", err)
	}
}

func TestStore_HydrateReplacesSessions(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	_, _ = s.Create(models.SessionTypeResume, nil)

	remote := &models.ChatSession{ID: uuid.New(), Title: "Remote", Type: models.SessionTypeCoverLetter}
	if err := s.Hydrate(context.Background(), &mockFetcher{sessions: []*models.ChatSession{remote}}); err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}
	list := s.List()
	if len(list) != 1 || list[0].ID != remote.ID {
		t.Fatalf("Expected remote snapshot to replace local state, got %+v", list)
	}
	if list[0].Messages == nil {
		t.Error("Expected nil message list to be normalized")
	}

	if err := s.Hydrate(context.Background(), &mockFetcher{err: errors.New("down")}); err == nil {
		t.Error("Expected hydrate error to be returned")
	}
	if len(s.List()) != 1 {
		t.Error("Expected failed hydrate to leave state untouched")
	}
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	id, _ := s.Create(models.SessionTypeResume, nil)
	s.AppendMessage(id, models.NewMessage(models.RoleUser, "original"))

	got, _ := s.Get(id)
	got.Messages[0].Content = "mutated"
	got.Title = "mutated"

	again, _ := s.Get(id)
	if again.Messages[0].Content != "original" || again.Title == "mutated" {
		t.Error("Expected store state to be isolated from callers")
	}
}

func TestStore_Subscribe(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	events, cancel := s.Subscribe()
	defer cancel()

	id, _ := s.Create(models.SessionTypeResume, nil)

	expected := []EventKind{EventCreated, EventActive}
	for _, kind := range expected {
		select {
		case ev := <-events:
			if ev.Kind != kind || ev.SessionID != id {
				t.Errorf("Expected %s event for %s, got %+v", kind, id, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timed out waiting for %s event", kind)
		}
	}
}

func TestStore_ConcurrentMutations(t *testing.T) {
	t.Parallel()

	mirror := &mockMirror{}
	s := newTestStore(t, mirror)
	id, _ := s.Create(models.SessionTypeResume, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendMessage(id, models.NewMessage(models.RoleUser, "msg"))
		}()
	}
	wg.Wait()

	got, _ := s.Get(id)
	if len(got.Messages) != 20 {
		t.Errorf("Expected 20 messages, got %d", len(got.Messages))
	}
}

func TestStore_MutationsDoNotWaitBehindFlush(t *testing.T) {
	t.Parallel()

	mirror := &mockMirror{block: make(chan struct{})}
	s := NewStore(uuid.New(), mirror, zap.NewNop(), WithQueueSize(1))
	t.Cleanup(s.Close)
	unblock := sync.OnceFunc(func() { close(mirror.block) })
	t.Cleanup(unblock)

	id, _ := s.Create(models.SessionTypeResume, nil)
	s.Rename(id, "first")

	flushed := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		flushed <- s.Flush(ctx)
	}()
	time.Sleep(50 * time.Millisecond)

	renamed := make(chan struct{})
	go func() {
		s.Rename(id, "second")
		close(renamed)
	}()
	select {
	case <-renamed:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Expected Rename to return while Flush waits on a full outbound queue")
	}

	if got, _ := s.Get(id); got.Title != "second" {
		t.Errorf("Expected local title to update immediately, got %q", got.Title)
	}

	unblock()
	if err := <-flushed; err != nil {
		t.Errorf("Expected Flush to complete once the mirror recovers, got %v", err)
	}
}

func TestStore_FlushAfterClose(t *testing.T) {
	t.Parallel()

	s := NewStore(uuid.New(), &mockMirror{}, zap.NewNop())
	s.Close()
	if err := s.Flush(context.Background()); !errors.Is(err, errDispatcherClosed) {
		t.Errorf("Expected errDispatcherClosed, got %v", err)
	}
}
