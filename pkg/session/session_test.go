package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"bioask/pkg/ai"
	"bioask/pkg/answer"
)

func TestNew_DefaultsExplainLevel(t *testing.T) {
	sess := New(Settings{Model: "llama3"})
	if sess.ID == "" {
		t.Fatal("Expected session ID")
	}
	if got := sess.Settings().ExplainLevel; got != ai.LevelHighSchool {
		t.Errorf("Expected default level, got %q", got)
	}
}

func TestHistory_OrderAndCopy(t *testing.T) {
	sess := New(Settings{})
	sess.AppendMessage(ai.Message{Role: ai.RoleUser, Content: "q1"})
	sess.AppendMessage(ai.Message{Role: ai.RoleAssistant, Content: "a1"})
	sess.AppendMessage(ai.Message{Role: ai.RoleAssistant, Content: "Error: boom"})

	history := sess.History()
	if len(history) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(history))
	}
	if history[0].Content != "q1" || history[2].Content != "Error: boom" {
		t.Errorf("Unexpected order: %+v", history)
	}

	history[0].Content = "mutated"
	if sess.History()[0].Content != "q1" {
		t.Error("History must return a copy")
	}
}

func TestLastAnswer(t *testing.T) {
	sess := New(Settings{})
	if _, ok := sess.LastAnswer(); ok {
		t.Fatal("Expected no answer on a new session")
	}

	sess.SetLastAnswer(answer.StructuredAnswer{Answer: "first", Confidence: "50%", Topics: []string{"a"}})
	sess.SetLastAnswer(answer.StructuredAnswer{Answer: "second", Confidence: "90%", Topics: []string{"b"}})

	got, ok := sess.LastAnswer()
	if !ok || got.Answer != "second" {
		t.Fatalf("Expected only the latest answer to be kept, got %+v", got)
	}
	got.Topics[0] = "mutated"
	again, _ := sess.LastAnswer()
	if again.Topics[0] != "b" {
		t.Error("LastAnswer must return a copy of topics")
	}
}

func TestReset_KeepsSettings(t *testing.T) {
	sess := New(Settings{Model: "mistral", ExplainLevel: ai.LevelUndergraduate})
	sess.AppendMessage(ai.Message{Role: ai.RoleUser, Content: "q"})
	sess.SetLastAnswer(answer.StructuredAnswer{Answer: "a"})

	sess.Reset()

	if sess.Len() != 0 {
		t.Errorf("Expected empty history, got %d", sess.Len())
	}
	if _, ok := sess.LastAnswer(); ok {
		t.Error("Expected last answer cleared")
	}
	if s := sess.Settings(); s.Model != "mistral" || s.ExplainLevel != ai.LevelUndergraduate {
		t.Errorf("Settings changed by Reset: %+v", s)
	}
}

func TestSetters(t *testing.T) {
	sess := New(Settings{})
	sess.SetModel("phi3")
	sess.SetExplainLevel(ai.LevelMiddleSchool)
	if s := sess.Settings(); s.Model != "phi3" || s.ExplainLevel != ai.LevelMiddleSchool {
		t.Errorf("Unexpected settings %+v", s)
	}
}

func TestTryBegin_SingleActiveTurn(t *testing.T) {
	sess := New(Settings{})
	if err := sess.TryBegin(); err != nil {
		t.Fatalf("TryBegin() error: %v", err)
	}
	if !sess.Busy() {
		t.Error("Expected busy session")
	}
	if err := sess.TryBegin(); !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("Expected ErrSessionBusy, got %v", err)
	}
	sess.End()
	if err := sess.TryBegin(); err != nil {
		t.Fatalf("TryBegin() after End error: %v", err)
	}
}

func TestTryBegin_Concurrent(t *testing.T) {
	sess := New(Settings{})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sess.TryBegin() == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly one winner, got %d", wins)
	}
}

func TestSnapshot(t *testing.T) {
	sess := New(Settings{Model: "llama3"})
	sess.AppendMessage(ai.Message{Role: ai.RoleUser, Content: "q"})

	snap := sess.Snapshot()
	if snap.ID != sess.ID || len(snap.History) != 1 || snap.LastAnswer != nil {
		t.Errorf("Unexpected snapshot %+v", snap)
	}

	sess.SetLastAnswer(answer.StructuredAnswer{Answer: "a"})
	if sess.Snapshot().LastAnswer == nil {
		t.Error("Expected last answer in snapshot")
	}
}

func TestStore_Isolation(t *testing.T) {
	store := NewStore(time.Minute)
	a := store.Create(Settings{Model: "a"})
	b := store.Create(Settings{Model: "b"})

	a.AppendMessage(ai.Message{Role: ai.RoleUser, Content: "only in a"})

	gotB, err := store.Get(b.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if gotB.Len() != 0 {
		t.Error("Sessions must not share history")
	}
	if store.Count() != 2 {
		t.Errorf("Expected 2 sessions, got %d", store.Count())
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := NewStore(time.Minute)
	if _, err := store.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(time.Minute)
	sess := store.Create(Settings{})

	if err := store.Delete(sess.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Expected deleted session to be gone, got %v", err)
	}
	if err := store.Delete(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestStore_Expiry(t *testing.T) {
	store := NewStore(50 * time.Millisecond)
	sess := store.Create(Settings{})

	time.Sleep(120 * time.Millisecond)

	if _, err := store.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Expected expired session, got %v", err)
	}
}
