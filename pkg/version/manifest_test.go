package version

import "testing"

func TestLoadCurrent(t *testing.T) {
	m, err := LoadCurrent()
	if err != nil {
		t.Fatalf("LoadCurrent() error: %v", err)
	}
	if m.Version != Current {
		t.Errorf("Version = %q, want %q", m.Version, Current)
	}
	if m.Description == "" {
		t.Error("Description is empty")
	}
}

func TestLoadCached(t *testing.T) {
	a, err := Load("1.0")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Load("1.0")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("second Load should return the cached manifest")
	}
}

func TestLoadNotFound(t *testing.T) {
	if _, err := Load("99.99"); err == nil {
		t.Fatal("Load(99.99) should return error")
	}
}

func TestAvailable(t *testing.T) {
	versions, err := Available()
	if err != nil {
		t.Fatalf("Available() error: %v", err)
	}
	if len(versions) == 0 || versions[0] != "1.0" {
		t.Errorf("Available() = %v, want to start with 1.0", versions)
	}
}

func TestManifest10Actions(t *testing.T) {
	m, err := Load("1.0")
	if err != nil {
		t.Fatal(err)
	}

	names := m.ActionNames()
	if len(names) != 16 {
		t.Errorf("1.0 has %d actions, want 16: %v", len(names), names)
	}

	tests := []struct {
		action string
		field  string
		want   bool
	}{
		{"transfer", "source", true},
		{"transfer", "sources", false},
		{"consolidate", "sources", true},
		{"comment", "message", true},
		{"pause", "instrument", false},
		{"aspirate", "well", false},
	}
	for _, tt := range tests {
		a, ok := m.Action(tt.action)
		if !ok {
			t.Errorf("action %q missing", tt.action)
			continue
		}
		if got := a.Requires(tt.field); got != tt.want {
			t.Errorf("%s.Requires(%q) = %v, want %v", tt.action, tt.field, got, tt.want)
		}
	}

	if _, ok := m.Action("shake"); ok {
		t.Error("unexpected action shake")
	}
}
