package persona

import "testing"

func TestDefaultIsStandard(t *testing.T) {
	m := NewManager()
	if got := m.Get(123); got != Standard {
		t.Fatalf("default role: got %q", got)
	}
	if m.SystemPrompt(123) == "" {
		t.Fatal("standard persona has no system prompt")
	}
}

func TestSetAndGetPerUser(t *testing.T) {
	m := NewManager()
	m.Set(1, Philosopher)
	m.Set(2, Comedian)

	if m.Get(1) != Philosopher || m.Get(2) != Comedian {
		t.Fatalf("roles mixed up: %q %q", m.Get(1), m.Get(2))
	}
	if m.Get(3) != Standard {
		t.Fatalf("untouched user got %q", m.Get(3))
	}
	if m.SystemPrompt(1) == m.SystemPrompt(2) {
		t.Fatal("different personas share a system prompt")
	}
}

func TestParse(t *testing.T) {
	for _, name := range []string{"standard", "philosopher", "programmer", "comedian"} {
		if _, ok := Parse(name); !ok {
			t.Errorf("known role %q rejected", name)
		}
	}
	if _, ok := Parse("pirate"); ok {
		t.Error("unknown role accepted")
	}
}
