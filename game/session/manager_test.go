package session

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/adventure-games/game/engine"
)

func createTestConfig() *engine.GameConfig {
	config := engine.DefaultNumbersConfig()
	config.Name = "Test Config"
	config.Description = "Test configuration"
	return config
}

// manualOpts keeps settle-delay validations from firing on real timers
func manualOpts() []engine.Option {
	return []engine.Option{engine.WithScheduler(&engine.ManualScheduler{})}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager(manualOpts()...)
	config := createTestConfig()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.Engine == nil {
			t.Fatal("Expected engine to be initialized")
		}
		if session.Engine.Phase() != engine.PhaseIdle {
			t.Errorf("Expected new session to be idle, got %s", session.Engine.Phase())
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got '%s'", session.ID)
		}
	})

	t.Run("create duplicate ID", func(t *testing.T) {
		_, err := manager.Create("test-session", config)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("IDs are case-insensitive", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", config)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("create with invalid config", func(t *testing.T) {
		bad := createTestConfig()
		bad.Columns = 0
		_, err := manager.Create("bad", bad)
		if err == nil {
			t.Error("Expected error for invalid config")
		}
		if _, getErr := manager.Get("bad"); !errors.Is(getErr, ErrSessionNotFound) {
			t.Error("Failed create should not register a session")
		}
	})

	t.Run("sessions get independent engines", func(t *testing.T) {
		a, _ := manager.Create("indep-a", config)
		b, _ := manager.Create("indep-b", config)
		if a.Engine == b.Engine {
			t.Fatal("Expected distinct engines")
		}
		if a.Engine.Dispatcher() == b.Engine.Dispatcher() {
			t.Error("Expected distinct input dispatchers")
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager(manualOpts()...)
	config := createTestConfig()

	created, err := manager.Create("get-test", config)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Error("Expected same session instance")
		}
	})

	t.Run("get with different case", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Error("Expected same session instance")
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := NewManager(manualOpts()...)
	config := createTestConfig()

	first, err := manager.GetOrCreate("goc", config)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	second, err := manager.GetOrCreate("goc", config)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if first != second {
		t.Error("Expected GetOrCreate to return the existing session")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", manager.Count())
	}
}

func TestManager_List(t *testing.T) {
	manager := NewManager(manualOpts()...)
	config := createTestConfig()

	if len(manager.List()) != 0 {
		t.Error("Expected empty list")
	}

	ids := []string{"list1", "list2", "list3"}
	for _, id := range ids {
		if _, err := manager.Create(id, config); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
	}

	sessions := manager.List()
	if len(sessions) != len(ids) {
		t.Fatalf("Expected %d sessions, got %d", len(ids), len(sessions))
	}
	found := make(map[string]bool)
	for _, s := range sessions {
		found[s.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			t.Errorf("Session %s not found in list", id)
		}
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(manualOpts()...)
	config := createTestConfig()

	if _, err := manager.Create("delete-me", config); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := manager.Delete("delete-me"); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if _, err := manager.Get("delete-me"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected deleted session to be gone, got %v", err)
	}
	if err := manager.Delete("delete-me"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
	if err := manager.DeleteFromMemory("delete-me"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager(manualOpts()...)
	session, err := manager.Create("access", createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	before := session.LastAccessedAt
	time.Sleep(5 * time.Millisecond)
	if err := manager.UpdateLastAccessed("access"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}
	if !session.LastAccessedAt.After(before) {
		t.Error("Expected LastAccessedAt to move forward")
	}

	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	manager := NewManager(manualOpts()...)
	config := createTestConfig()

	old, _ := manager.Create("old", config)
	manager.Create("fresh", config)
	old.LastAccessedAt = time.Now().Add(-2 * time.Hour)

	removed := manager.CleanupExpiredSessions(time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 session removed, got %d", removed)
	}
	if _, err := manager.Get("old"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected expired session to be removed")
	}
	if _, err := manager.Get("fresh"); err != nil {
		t.Errorf("Expected fresh session to remain, got %v", err)
	}
}

func TestManager_CountByPhase(t *testing.T) {
	manager := NewManager(manualOpts()...)
	config := createTestConfig()

	a, _ := manager.Create("phase-a", config)
	manager.Create("phase-b", config)
	if err := a.Engine.DragStart(0); err != nil {
		t.Fatalf("Failed to start drag: %v", err)
	}

	counts := manager.CountByPhase()
	if counts[engine.PhaseIdle] != 1 || counts[engine.PhaseRunning] != 1 {
		t.Errorf("Expected one idle and one running session, got %v", counts)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager(manualOpts()...)
	config := createTestConfig()

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := manager.Create("", config)
			if err != nil {
				t.Errorf("Failed to create session: %v", err)
				return
			}
			ids <- session.ID
			manager.Get(session.ID)
			manager.List()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[strings.ToLower(id)] {
			t.Errorf("Duplicate session ID generated: %s", id)
		}
		seen[strings.ToLower(id)] = true
	}
	if manager.Count() != len(seen) {
		t.Errorf("Expected %d sessions, got %d", len(seen), manager.Count())
	}
}

func TestGenerateSessionID(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := generateSessionID()
		if len(id) != 4 {
			t.Fatalf("Expected 4-character ID, got '%s'", id)
		}
		if strings.ToLower(id) != id {
			t.Fatalf("Expected lowercase ID, got '%s'", id)
		}
	}
}
