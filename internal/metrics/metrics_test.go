package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSummaryHandler(t *testing.T) {
	m := New()

	m.IncAuthSuccess("login")
	m.IncAuthSuccess("register")
	m.IncAuthFailure("login")
	m.IncRateLimitRejection("login")
	m.IncTeamCreated()
	m.IncTaskCreated()
	m.IncTaskCreated()
	m.HTTPRequestsTotal.WithLabelValues("GET", "/teams", "200").Inc()
	m.HTTPRequestsTotal.WithLabelValues("GET", "/teams", "500").Inc()
	m.HTTPRequestDuration.WithLabelValues("GET", "/teams").Observe(0.05)
	m.SetCollectorBufferSize(7)
	m.IncCollectorFlush("success")
	m.IncCollectorFlush("error")
	m.AddCollectorEvents(3)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var s Summary
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}

	if s.Mode != "live" {
		t.Errorf("mode = %q, want live", s.Mode)
	}
	if s.Auth.Successes != 2 {
		t.Errorf("auth successes = %v, want 2", s.Auth.Successes)
	}
	if s.Auth.Failures != 1 {
		t.Errorf("auth failures = %v, want 1", s.Auth.Failures)
	}
	if s.RateLimit.Rejections != 1 {
		t.Errorf("ratelimit rejections = %v, want 1", s.RateLimit.Rejections)
	}
	if s.Domain.TeamsCreated != 1 || s.Domain.TasksCreated != 2 {
		t.Errorf("domain counters = %+v, want 1 team and 2 tasks", s.Domain)
	}
	if s.HTTP.TotalRequests != 2 {
		t.Errorf("http total = %v, want 2", s.HTTP.TotalRequests)
	}
	if s.HTTP.ErrorRate != 0.5 {
		t.Errorf("http error rate = %v, want 0.5", s.HTTP.ErrorRate)
	}
	if s.Collector.BufferSize != 7 {
		t.Errorf("collector buffer = %v, want 7", s.Collector.BufferSize)
	}
	if s.Collector.TotalFlushes != 2 {
		t.Errorf("collector flushes = %v, want 2", s.Collector.TotalFlushes)
	}
	if s.Collector.FlushErrors != 1 {
		t.Errorf("collector flush errors = %v, want 1", s.Collector.FlushErrors)
	}
	if s.Collector.Events != 3 {
		t.Errorf("collector events = %v, want 3", s.Collector.Events)
	}
	if s.Server.StartTime == 0 {
		t.Error("server start time should be set")
	}
}

func TestDBPoolCollector(t *testing.T) {
	m := New()
	m.RegisterDBPoolCollector(func() DBPoolStats {
		return DBPoolStats{TotalConns: 10, IdleConns: 6, AcquiredConns: 4}
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	var s Summary
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}

	if s.DB.TotalConns != 10 || s.DB.IdleConns != 6 || s.DB.AcquiredConns != 4 {
		t.Errorf("db stats = %+v, want 10/6/4", s.DB)
	}
}

func TestExpositionHandler(t *testing.T) {
	m := New()
	m.IncAuthSuccess("login")

	req := httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil)
	rec := httptest.NewRecorder()
	m.ExpositionHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "taskhub_auth_successes_total") {
		t.Fatal("expected the exposition body to contain taskhub metric families")
	}
}
