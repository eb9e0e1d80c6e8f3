package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrEthical07/sikad/internal/fakebackend"
)

func TestCLISessionAcrossInvocations(t *testing.T) {
	backend, err := fakebackend.New(fakebackend.Config{})
	if err != nil {
		t.Fatalf("fake backend: %v", err)
	}
	ts := httptest.NewServer(backend.Router())
	defer ts.Close()

	state := filepath.Join(t.TempDir(), "session.json")
	invoke := func(args ...string) (int, string, string) {
		var stdout, stderr bytes.Buffer
		full := append([]string{"-url", ts.URL, "-state", state}, args...)
		code := run(full, &stdout, &stderr)
		return code, stdout.String(), stderr.String()
	}

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{name: "guarded before login", args: []string{"activities"}, wantCode: 1, wantErr: "Silakan login"},
		{name: "public lookup before login", args: []string{"stases"}, wantOut: "Keperawatan Anak"},
		{name: "wrong password", args: []string{"login", fakebackend.SeedStudent, "-password", "salah"}, wantCode: 1, wantErr: "Username atau password salah"},
		{name: "login", args: []string{"login", fakebackend.SeedStudent, "-password", fakebackend.SeedPassword}, wantOut: "Login berhasil"},
		{name: "session restored", args: []string{"activities"}, wantOut: "Perawatan luka"},
		{name: "login page redirects home", args: []string{"login", fakebackend.SeedStudent, "-password", fakebackend.SeedPassword}, wantCode: 1, wantErr: "Sudah login"},
		{name: "student cannot create activity", args: []string{"activity-create", "-name", "x", "-indicators", "y", "-advisor", "2"}, wantCode: 1},
		{name: "checkin validates", args: []string{"checkin", "-activity", "1"}, wantCode: 1, wantErr: "Foto harus diambil"},
		{name: "logout", args: []string{"logout"}, wantOut: "Logout berhasil"},
		{name: "route after logout", args: []string{"route", "/(tabs)"}, wantOut: "redirect -> /login"},
	}

	for _, tc := range tests {
		code, out, errOut := invoke(tc.args...)
		if code != tc.wantCode {
			t.Fatalf("%s: expected exit %d, got %d (stdout=%q stderr=%q)", tc.name, tc.wantCode, code, out, errOut)
		}
		if tc.wantOut != "" && !strings.Contains(out, tc.wantOut) {
			t.Fatalf("%s: stdout %q missing %q", tc.name, out, tc.wantOut)
		}
		if tc.wantErr != "" && !strings.Contains(errOut, tc.wantErr) {
			t.Fatalf("%s: stderr %q missing %q", tc.name, errOut, tc.wantErr)
		}
	}
}

func TestCLIUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"nope"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(stderr.String(), "unknown command") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}
