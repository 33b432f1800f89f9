package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLocalID(t *testing.T) {
	a := NewLocalID()
	b := NewLocalID()

	if !a.IsLocal() || !b.IsLocal() {
		t.Error("expected freshly minted ids to be local")
	}
	if a == b {
		t.Errorf("expected distinct ids, got %s twice", a)
	}
	if !strings.HasPrefix(a.String(), "local_") {
		t.Errorf("expected local_ prefix, got %s", a)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		value string
		local bool
	}{
		{"local_1756712345", true},
		{"42", false},
		{"8b1f4e2a-1111-4222-8333-944445555666", false},
	}

	for _, tt := range tests {
		id := ParseID(tt.value)
		if id.IsLocal() != tt.local {
			t.Errorf("ParseID(%q).IsLocal() = %v, want %v", tt.value, id.IsLocal(), tt.local)
		}
		if id.String() != tt.value {
			t.Errorf("ParseID(%q).String() = %q", tt.value, id.String())
		}
	}
}

func TestEntityIDJSONMapKey(t *testing.T) {
	local := NewLocalID()
	in := map[EntityID]string{
		local:          "a",
		RemoteID("42"): "b",
	}

	encoded, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	out := map[EntityID]string{}
	if err := json.Unmarshal(encoded, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if out[local] != "a" {
		t.Errorf("local key did not round trip: %v", out)
	}
	if out[RemoteID("42")] != "b" {
		t.Errorf("remote key did not round trip: %v", out)
	}
	for k := range out {
		if k == local && !k.IsLocal() {
			t.Error("local tag lost through JSON round trip")
		}
	}
}

func TestParseInviteCode(t *testing.T) {
	tests := []struct {
		code    string
		want    string
		wantErr bool
	}{
		{"TRIP-123", "123", false},
		{"trip-abc-def", "abc-def", false},
		{"  TRIP-9  ", "9", false},
		{"TRIP-", "", true},
		{"123", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		id, err := ParseInviteCode(tt.code)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseInviteCode(%q): expected error", tt.code)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseInviteCode(%q): %v", tt.code, err)
			continue
		}
		if id.String() != tt.want {
			t.Errorf("ParseInviteCode(%q) = %q, want %q", tt.code, id, tt.want)
		}
		if id.IsLocal() {
			t.Errorf("ParseInviteCode(%q) returned a local id", tt.code)
		}
	}
}

func TestFormatInviteCode(t *testing.T) {
	code := FormatInviteCode(RemoteID("77"))
	if code != "TRIP-77" {
		t.Errorf("FormatInviteCode = %q, want TRIP-77", code)
	}
	id, err := ParseInviteCode(code)
	if err != nil || id.String() != "77" {
		t.Errorf("round trip failed: %v %v", id, err)
	}
}
