package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestProfileKeepsUnknownFields(t *testing.T) {
	raw := `{"id":"u-7","name":"Sari","role":"advisor","type":"clinic","room":"IGD","hospital":{"code":"RSW"}}`
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != "u-7" || p.AdvisorType != AdvisorClinic || p.Room != "IGD" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if _, ok := p.Extra["hospital"]; !ok {
		t.Fatalf("extension field dropped: %+v", p.Extra)
	}
	if _, ok := p.Extra["room"]; ok {
		t.Fatal("known field leaked into Extra")
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"hospital":{"code":"RSW"}`) {
		t.Fatalf("extension field not written back: %s", out)
	}
}

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	cases := map[string]ID{`42`: "42", `"abc"`: "abc", `null`: ""}
	for in, want := range cases {
		var id ID
		if err := json.Unmarshal([]byte(in), &id); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if id != want {
			t.Fatalf("unmarshal %s = %q, want %q", in, id, want)
		}
	}
	var id ID
	if err := json.Unmarshal([]byte(`{}`), &id); err == nil {
		t.Fatal("expected error for object id")
	}
}

func TestRolePredicates(t *testing.T) {
	if !RoleMahasiswa.IsStudent() || !RoleStudent.IsStudent() {
		t.Fatal("student roles not recognized")
	}
	if !RoleClinicPreceptor.IsAdvisor() || RoleStudent.IsAdvisor() {
		t.Fatal("advisor roles misclassified")
	}
	if !RoleProgramHead.IsProgramHead() {
		t.Fatal("program head not recognized")
	}
}

func TestHasCheckInOn(t *testing.T) {
	loc := time.FixedZone("WITA", 8*3600)
	entries := []LogbookEntry{
		{CheckInDate: "2024-03-04T09:00:00"},
		{CheckInDate: "garbage"},
		{CheckInDate: "06-03-2024"},
		{CheckInDate: "2024-05-01T20:00:00Z"},
	}
	cases := []struct {
		day  time.Time
		want bool
	}{
		{time.Date(2024, 3, 4, 10, 0, 0, 0, loc), true},
		// 2024-03-04 20:00 UTC is already the 5th in WITA.
		{time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC), false},
		{time.Date(2024, 3, 6, 0, 0, 0, 0, loc), true},
		// The backend's date part counts even when its UTC instant falls on the next day in WITA.
		{time.Date(2024, 5, 1, 9, 0, 0, 0, loc), true},
		{time.Date(2024, 5, 2, 9, 0, 0, 0, loc), false},
	}
	for _, tc := range cases {
		if got := HasCheckInOn(entries, tc.day, loc); got != tc.want {
			t.Fatalf("HasCheckInOn(%v) = %v, want %v", tc.day, got, tc.want)
		}
	}
}
