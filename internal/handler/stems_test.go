package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/stemworks/api/internal/aggregator"
	"github.com/stemworks/api/internal/eventbus"
	"github.com/stemworks/api/internal/eventlog"
	"github.com/stemworks/api/internal/model"
	"github.com/stemworks/api/internal/pipeline"
	"github.com/stemworks/api/internal/registry"
)

type inlineScheduler struct {
	mu  sync.Mutex
	ids []string
}

func (s *inlineScheduler) Schedule(_ context.Context, uploadID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, uploadID)
	return nil
}

// testApp wires the API against in-memory stores, mirroring main.go without
// redis or the worker server.
type testApp struct {
	app       *fiber.App
	pipeline  *pipeline.Pipeline
	eventLog  *eventlog.Log
	scheduler *inlineScheduler
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	bus := eventbus.New()
	eventLog := eventlog.New()
	eventLog.Attach(bus, model.KnownEventNames...)

	scheduler := &inlineScheduler{}
	p := pipeline.New(registry.NewMemoryStore(), bus, scheduler, pipeline.Config{
		ProcessingDelay: time.Millisecond,
		SampleURI:       "https://cdn.stemworks.io/samples/preview.mp3",
	})
	agg := aggregator.New(eventLog, aggregator.NewMemoryExportStore())

	validate := validator.New()
	stemsHandler := NewStemsHandler(p, validate)
	analyticsHandler := NewAnalyticsHandler(agg)

	app := fiber.New()
	api := app.Group("/api")

	stems := api.Group("/stems")
	stems.Post("/upload", stemsHandler.Submit)
	stems.Get("/status/:uploadId", stemsHandler.Status)
	stems.Post("/retry/:uploadId", stemsHandler.Retry)
	stems.Post("/cancel/:uploadId", stemsHandler.Cancel)

	analytics := api.Group("/analytics")
	analytics.Get("/artists/:artistId/stats", analyticsHandler.Stats)
	analytics.Get("/artists/:artistId/dashboard", analyticsHandler.Dashboard)
	analytics.Post("/rollup", analyticsHandler.Rollup)

	return &testApp{app: app, pipeline: p, eventLog: eventLog, scheduler: scheduler}
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, path, &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, want, body)
	}
}

func parseJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

func submitUpload(t *testing.T, ta *testApp, refs ...string) string {
	t.Helper()

	resp, err := ta.app.Test(jsonRequest(t, http.MethodPost, "/api/stems/upload", fiber.Map{
		"artistId":       "artist-1",
		"fileReferences": refs,
		"metadata":       fiber.Map{"title": "Neon Drift"},
	}), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)

	result := parseJSON(t, resp)
	id, _ := result["id"].(string)
	if id == "" {
		t.Fatal("expected 'id' in response")
	}
	return id
}

func TestSubmitUpload_Accepted(t *testing.T) {
	ta := setupApp(t)

	id := submitUpload(t, ta, "https://cdn.example.com/drums.wav", "vocals.wav")

	resp, err := ta.app.Test(jsonRequest(t, http.MethodGet, "/api/stems/status/"+id, nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["status"] != "queued" {
		t.Errorf("status = %v, want queued", result["status"])
	}

	// Submission alone already produced the draft event.
	if ta.eventLog.Len() != 1 {
		t.Errorf("expected 1 logged event after submit, got %d", ta.eventLog.Len())
	}
}

func TestSubmitUpload_EmptyFileReferences(t *testing.T) {
	ta := setupApp(t)

	resp, err := ta.app.Test(jsonRequest(t, http.MethodPost, "/api/stems/upload", fiber.Map{
		"artistId":       "artist-1",
		"fileReferences": []string{},
	}), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestUploadStatus_NotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := ta.app.Test(jsonRequest(t, http.MethodGet, "/api/stems/status/rel_missing", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestRetry_ConflictOnQueuedUpload(t *testing.T) {
	ta := setupApp(t)
	id := submitUpload(t, ta, "drums.wav")

	resp, err := ta.app.Test(jsonRequest(t, http.MethodPost, "/api/stems/retry/"+id, nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusConflict)
}

func TestCancelThenRetry_Flow(t *testing.T) {
	ta := setupApp(t)
	id := submitUpload(t, ta, "drums.wav")

	resp, err := ta.app.Test(jsonRequest(t, http.MethodPost, "/api/stems/cancel/"+id, nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	result := parseJSON(t, resp)
	if result["status"] != "failed" || result["error"] != "cancelled" {
		t.Errorf("unexpected cancel result: %v", result)
	}

	resp, err = ta.app.Test(jsonRequest(t, http.MethodPost, "/api/stems/retry/"+id, nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	result = parseJSON(t, resp)
	if result["status"] != "queued" {
		t.Errorf("retry did not re-queue: %v", result)
	}
}

func TestCancel_CompletedUploadConflicts(t *testing.T) {
	ta := setupApp(t)
	id := submitUpload(t, ta, "drums.wav")

	if err := ta.pipeline.ProcessUpload(context.Background(), id); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	resp, err := ta.app.Test(jsonRequest(t, http.MethodPost, "/api/stems/cancel/"+id, nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusConflict)
}

func TestArtistStats_Endpoint(t *testing.T) {
	ta := setupApp(t)

	attr := model.PlayAttribution{ArtistID: "artist-1", TrackID: "track-1", Title: "Neon Drift"}
	_ = ta.eventLog.Append(model.NewEvent(model.EventLicenseGranted, time.Now(), model.LicenseGrantedPayload{PlayAttribution: attr}))
	_ = ta.eventLog.Append(model.NewEvent(model.EventPaymentSettled, time.Now(), model.PaymentSettledPayload{PlayAttribution: attr, AmountUSD: 1.5}))

	resp, err := ta.app.Test(jsonRequest(t, http.MethodGet, "/api/analytics/artists/artist-1/stats?days=7", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	summary, _ := result["summary"].(map[string]any)
	if summary == nil {
		t.Fatal("missing summary")
	}
	if summary["totalPlays"] != float64(1) || summary["totalPayoutUsd"] != 1.5 {
		t.Errorf("unexpected summary: %v", summary)
	}
}

func TestArtistStats_InvalidDays(t *testing.T) {
	ta := setupApp(t)

	resp, err := ta.app.Test(jsonRequest(t, http.MethodGet, "/api/analytics/artists/artist-1/stats?days=0", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestRollup_Endpoint(t *testing.T) {
	ta := setupApp(t)

	attr := model.PlayAttribution{ArtistID: "artist-1", TrackID: "track-1"}
	_ = ta.eventLog.Append(model.NewEvent(model.EventLicenseGranted, time.Now(), model.LicenseGrantedPayload{PlayAttribution: attr}))

	resp, err := ta.app.Test(jsonRequest(t, http.MethodPost, "/api/analytics/rollup", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["status"] != "completed" {
		t.Errorf("rollup status = %v", result["status"])
	}
	if result["artists"] != float64(1) {
		t.Errorf("artists = %v, want 1", result["artists"])
	}
}
