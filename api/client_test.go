package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Printf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*Client, *recordingLogger) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := &recordingLogger{}
	opts = append([]Option{WithLogger(logger)}, opts...)
	c, err := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, logger
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{},
		{BaseURL: "ftp://example.com"},
		{BaseURL: "://bad"},
		{BaseURL: "http://example.com", Timeout: -time.Second},
	}
	for _, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	c, err := New(Config{BaseURL: "https://sikad.example.com/api/"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Timeout() != DefaultTimeout {
		t.Fatalf("expected default timeout, got %v", c.Timeout())
	}
	if c.Location() == nil {
		t.Fatal("expected default location")
	}
	if got := c.FileDownloadURL(7); got != "https://sikad.example.com/api/files/7/download" {
		t.Fatalf("unexpected download url %q", got)
	}
}

func TestLoginSendsCredentialsAndDecodesToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not carry a bearer token")
		}
		if r.Header.Get(requestIDHeader) == "" {
			t.Errorf("missing request id")
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"username":"budi"`) {
			t.Errorf("unexpected body %s", body)
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"token":"tok-1"}}`)
	})

	res := c.Login(context.Background(), "budi", "Secret1!")
	if !res.Success || res.Data.Token != "tok-1" {
		t.Fatalf("unexpected response %+v", res)
	}
	if res.Err() != nil {
		t.Fatalf("expected nil error, got %v", res.Err())
	}
}

func TestBearerTokenAttached(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-9" {
			t.Errorf("unexpected authorization %q", got)
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":3,"name":"Budi","role":"student","nickname":"bud"}}`)
	})

	res := c.GetSession(context.Background(), "tok-9")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Data.ID != "3" || res.Data.Role != RoleStudent {
		t.Fatalf("unexpected profile %+v", res.Data)
	}
	if v, ok := res.Data.ExtraString("nickname"); !ok || v != "bud" {
		t.Fatalf("expected extension field, got %q %v", v, ok)
	}
}

func TestNon2xxUsesBackendMessage(t *testing.T) {
	c, logger := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success":false,"message":"Token expired"}`)
	})

	res := c.GetSession(context.Background(), "old")
	if res.Success || res.Message != "Token expired" {
		t.Fatalf("unexpected response %+v", res)
	}
	if !res.Unauthorized() || res.Kind != KindRejected {
		t.Fatalf("expected rejected 401, got kind=%v status=%d", res.Kind, res.Status)
	}
	if !errors.Is(res.Err(), ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", res.Err())
	}
	if logger.count() != 1 {
		t.Fatalf("expected one diagnostic, got %d", logger.count())
	}
}

func TestNon2xxFallbackMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{}`)
	})
	res := c.GetActivities(context.Background(), "tok")
	if res.Success || !strings.HasPrefix(res.Message, MessageDefault) {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestErrorFieldUsedWhenMessageMissing(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"name is required"}`)
	})
	res := c.CreateActivity(context.Background(), "tok", ActivityInput{})
	if res.Message != "name is required" {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestSuccessFalseOn200IsRejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"Username atau password salah"}`)
	})
	res := c.Login(context.Background(), "budi", "nope")
	if res.Success || res.Kind != KindRejected || res.Message != "Username atau password salah" {
		t.Fatalf("unexpected response %+v", res)
	}
}

func TestMalformedBodyIsTruncatedDiagnostic(t *testing.T) {
	html := "<html>" + strings.Repeat("x", 500) + "</html>"
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, html)
	})

	res := c.GetFiles(context.Background(), "")
	if res.Success || res.Kind != KindMalformed {
		t.Fatalf("expected malformed, got %+v", res)
	}
	if !strings.HasPrefix(res.Message, "Invalid response from server: <html>") {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if len(res.Message) > len("Invalid response from server: ")+diagnosticPrefix+3 {
		t.Fatalf("diagnostic not truncated: %d bytes", len(res.Message))
	}
}

func TestMissingSuccessFlagIsMalformed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	})
	if res := c.GetGroups(context.Background(), ""); res.Kind != KindMalformed {
		t.Fatalf("expected malformed, got %+v", res)
	}
}

func TestUnexpectedDataShapeIsMalformed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":"not-a-list"}`)
	})
	if res := c.GetStases(context.Background(), ""); res.Kind != KindMalformed {
		t.Fatalf("expected malformed, got %+v", res)
	}
}

func TestEmptySuccessBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if res := c.DeleteActivity(context.Background(), "tok", 4); !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestTimeoutReturnsFailureNotError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	logger := &recordingLogger{}
	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, WithLogger(logger))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	start := time.Now()
	res := c.GetSession(context.Background(), "tok")
	if res.Success || res.Message != "Request timeout" || res.Kind != KindTimeout {
		t.Fatalf("unexpected response %+v", res)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not enforced: %v", time.Since(start))
	}
	if !errors.Is(res.Err(), ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", res.Err())
	}
	if logger.count() != 0 {
		t.Fatalf("timeouts must not be logged, got %d lines", logger.count())
	}
}

func TestCallerCancellationIsCanceledKind(t *testing.T) {
	started := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	res := c.GetActivities(ctx, "tok")
	if res.Kind != KindCanceled {
		t.Fatalf("expected canceled, got %+v", res)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Timeout: time.Second}, WithLogger(nil))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res := c.GetFiles(context.Background(), "")
	if res.Success || res.Kind != KindNetwork {
		t.Fatalf("expected network failure, got %+v", res)
	}
	if !strings.HasPrefix(res.Message, "Network request failed") {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestSilentSuppressesLogging(t *testing.T) {
	c, logger := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"expired"}`)
	})

	c.GetSession(Silent(context.Background()), "tok")
	if logger.count() != 0 {
		t.Fatalf("silent call logged %d lines", logger.count())
	}
	c.GetSession(context.Background(), "tok")
	if logger.count() != 1 {
		t.Fatalf("expected one line, got %d", logger.count())
	}
}

func TestStdLoggerSatisfiesLogger(t *testing.T) {
	var buf bytes.Buffer
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, WithLogger(log.New(&buf, "", 0)))

	c.GetStatistics(context.Background(), "tok")
	if !strings.Contains(buf.String(), "sikad: api GET /statistics failed") {
		t.Fatalf("unexpected log output %q", buf.String())
	}
}

func TestRequestIDsCanBeDisabled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(requestIDHeader) != "" {
			t.Errorf("request id should be absent")
		}
		_, _ = io.WriteString(w, `{"success":true,"data":[]}`)
	}, WithRequestIDs(false))
	if res := c.GetGroups(context.Background(), ""); !res.Success {
		t.Fatalf("unexpected response %+v", res)
	}
}

func TestCheckInMultipartFields(t *testing.T) {
	loc := time.FixedZone("WITA", 8*3600)
	at := time.Date(2024, 3, 5, 1, 7, 42, 0, time.UTC)

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logbooks/check-in" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		want := map[string]string{
			"activity_id": "12",
			"date":        "05-03-2024",
			"check_time":  "09:07:00",
			"latitude":    "-5.1477",
			"longitude":   "119.4327",
			"address":     "RS Wahidin",
		}
		for k, v := range want {
			if got := r.FormValue(k); got != v {
				t.Errorf("field %s = %q, want %q", k, got, v)
			}
		}
		f, hdr, err := r.FormFile("photo")
		if err != nil {
			t.Errorf("photo part: %v", err)
			return
		}
		defer f.Close()
		if hdr.Header.Get("Content-Type") != "image/jpeg" {
			t.Errorf("unexpected photo type %q", hdr.Header.Get("Content-Type"))
		}
		data, _ := io.ReadAll(f)
		if string(data) != "jpegbytes" {
			t.Errorf("unexpected photo bytes %q", data)
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"check_in_id":55,"check_in_date":"2024-03-05","check_in_time":"09:07:00","status":"pending"}}`)
	})
	c.location = loc

	res := c.CheckIn(context.Background(), "tok", CheckInForm{
		ActivityID: 12,
		Location:   Location{Latitude: -5.1477, Longitude: 119.4327, Address: "RS Wahidin"},
		Photo:      Photo{Content: strings.NewReader("jpegbytes")},
		At:         at,
	})
	if !res.Success || res.Data.CheckInID != 55 || res.Data.CheckedOut() {
		t.Fatalf("unexpected response %+v", res)
	}
}

func TestCheckOutAddsDescription(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logbooks/55/check-out" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("description") != "Observed triage" {
			t.Errorf("missing description")
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"check_in_id":55,"check_out_date":"2024-03-05","status":"pending"}}`)
	})
	res := c.CheckOut(context.Background(), "tok", 55, CheckOutForm{
		ActivityID:  12,
		Photo:       Photo{Content: strings.NewReader("x")},
		Description: "Observed triage",
	})
	if !res.Success || !res.Data.CheckedOut() {
		t.Fatalf("unexpected response %+v", res)
	}
}

func TestMissingPhotoContentIsInvalidRequest(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request should not be sent")
	})
	res := c.CheckIn(context.Background(), "tok", CheckInForm{ActivityID: 1})
	if res.Kind != KindInvalidRequest {
		t.Fatalf("expected invalid request, got %+v", res)
	}
}

func TestDownloadFile(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/3/download":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = io.WriteString(w, "%PDF-1.4")
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"File not found"}`)
		}
	})

	var buf bytes.Buffer
	res := c.DownloadFile(context.Background(), "", 3, &buf)
	if !res.Success || res.Data != 8 || buf.String() != "%PDF-1.4" {
		t.Fatalf("unexpected download %+v %q", res, buf.String())
	}

	res = c.DownloadFile(context.Background(), "", 4, &buf)
	if res.Success || res.Message != "File not found" {
		t.Fatalf("unexpected failure %+v", res)
	}
}

func TestClinicAdvisorPrefersAdvisorID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":[{"id":1,"advisor_id":9,"name":"dr. Sari","room":"IGD"},{"id":2,"name":"dr. Ali"}]}`)
	})
	res := c.GetClinicAdvisors(context.Background(), "tok")
	if !res.Success || len(res.Data) != 2 {
		t.Fatalf("unexpected response %+v", res)
	}
	if res.Data[0].ID != 9 || res.Data[1].ID != 2 {
		t.Fatalf("unexpected ids %+v", res.Data)
	}
}
