package tui

import (
	"slices"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"join 42", Command{Name: "join", Args: "42"}},
		{"  LEAVE ", Command{Name: "leave"}},
		{"attach a.png  b.mp4", Command{Name: "attach", Args: "a.png  b.mp4"}},
		{"", Command{}},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.in); got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestCommandGroupID(t *testing.T) {
	id, err := ParseCommand("join 42").GroupID()
	if err != nil || id != 42 {
		t.Errorf("GroupID() = %d, %v; want 42", id, err)
	}
	for _, bad := range []string{"join", "join abc", "join -1", "join 0"} {
		if _, err := ParseCommand(bad).GroupID(); err == nil {
			t.Errorf("GroupID(%q) should fail", bad)
		}
	}
}

func TestCommandPaths(t *testing.T) {
	got := ParseCommand("attach a.png  b.mp4").Paths()
	if !slices.Equal(got, []string{"a.png", "b.mp4"}) {
		t.Errorf("Paths() = %v", got)
	}
}
