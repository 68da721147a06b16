package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TourScanner/internal/config"
	"TourScanner/internal/domain"
	"TourScanner/internal/usecase"
)

const todayPage = `
<html><body>
  <div class="event">
    <h2 class="artist">The Cure</h2>
    <div class="venue">Wembley Arena, London</div>
    <time datetime="2025-06-14T19:30:00">Sat, Jun 14</time>
    <a class="tickets" href="/e/1001">Tickets</a>
  </div>
  <div class="event">
    <h2 class="artist">Muse</h2>
    <div class="venue">Olympiastadion, Berlin</div>
    <time datetime="2025-06-15T20:00:00">Sun, Jun 15</time>
  </div>
  <div class="event">
    <div class="venue">Somewhere</div>
  </div>
</body></html>`

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, pageURL string) config.Config {
	t.Helper()
	return config.Config{
		Logging:   config.LoggingConfig{Level: "debug", Format: "text"},
		Scheduler: config.SchedulerConfig{Duration: "5s", Pause: "2s"},
		Storage: config.StorageConfig{
			Backend: "file",
			Path:    filepath.Join(t.TempDir(), "tours_data.json"),
		},
		Sources: []config.SourceConfig{{
			Name:      "local",
			URL:       pageURL,
			Extractor: "selectors",
			Ruleset: domain.Ruleset{
				BaseURL: pageURL,
				Items: domain.ItemRule{
					CSS: "div.event",
					Fields: map[string]domain.FieldRule{
						"artist":   {CSS: ".artist"},
						"location": {CSS: ".venue"},
						"date":     {CSS: "time", Type: domain.FieldAttribute, Attribute: "datetime"},
						"url":      {CSS: "a.tickets", Type: domain.FieldLink},
					},
				},
			},
		}},
		Notifications: config.NotificationConfig{DryRun: true},
	}
}

func newPageServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, todayPage)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestApplicationRunOnceIsIdempotent(t *testing.T) {
	var hits atomic.Int32
	srv := newPageServer(t, &hits)

	var out bytes.Buffer
	application, err := New(testConfig(t, srv.URL), quietLogger(), WithDryRunOutput(&out))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	ctx := context.Background()

	results, err := application.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "local", results[0].Source)
	assert.Equal(t, usecase.StatusNewRecords, results[0].Result.Status)
	assert.Len(t, results[0].Result.Accepted, 2)
	assert.Equal(t, 1, results[0].Result.RejectedCount)
	assert.Contains(t, out.String(), "The Cure")
	assert.Contains(t, out.String(), "Muse")

	out.Reset()
	results, err = application.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.StatusNoNewRecords, results[0].Result.Status)
	assert.Empty(t, out.String())

	records, err := application.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "The Cure", records[0].Subject)
	assert.Equal(t, srv.URL+"/e/1001", records[0].ReferenceURL)
	assert.Equal(t, "", records[1].ReferenceURL)
	assert.Equal(t, int32(2), hits.Load())
}

func TestApplicationRunHonoursBound(t *testing.T) {
	var hits atomic.Int32
	srv := newPageServer(t, &hits)

	var out bytes.Buffer
	clock := &stepClock{now: time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)}
	application, err := New(testConfig(t, srv.URL), quietLogger(),
		WithDryRunOutput(&out), WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	require.NoError(t, application.Run(context.Background()))

	// cycles at t=0s, 2s, 4s; the last pause is cut to end at the 5s bound.
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 1, strings.Count(out.String(), "new record(s)"))
}

func TestNewRejectsInvalidSource(t *testing.T) {
	cfg := testConfig(t, "https://example.com/today")
	cfg.Sources[0].Extractor = "xpath"

	_, err := New(cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extractor xpath is not registered (available: jsonld, selectors)")

	cfg = testConfig(t, "https://example.com/today")
	cfg.Sources[0].Ruleset.Items.CSS = ""
	_, err = New(cfg, quietLogger())
	require.Error(t, err)
}

func TestNewLogsStartupSummary(t *testing.T) {
	cfg := testConfig(t, "https://example.com/today")

	var logs bytes.Buffer
	application, err := New(cfg, slog.New(slog.NewTextHandler(&logs, nil)), WithDryRunOutput(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	line := logs.String()
	assert.Contains(t, line, "msg=\"application ready\"")
	assert.Contains(t, line, "sources=1")
	assert.Contains(t, line, "backend=file")
	assert.Contains(t, line, "path="+cfg.Storage.Path)
	assert.Contains(t, line, "channels=[dry-run]")
	assert.Contains(t, line, "jsonld selectors")
}

func TestNewRejectsBadTiming(t *testing.T) {
	cfg := testConfig(t, "https://example.com/today")
	cfg.Scheduler.Pause = "0s"

	_, err := New(cfg, quietLogger())
	require.Error(t, err)
}

func TestBuildNotifierWithoutChannels(t *testing.T) {
	n, err := buildNotifier(config.NotificationConfig{}, nil, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = buildNotifier(config.NotificationConfig{
		DryRun:   true,
		Telegram: config.TelegramConfig{BotToken: "token", ChatID: "42"},
	}, io.Discard, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, n)
}
