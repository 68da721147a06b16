package parser

import (
	"context"
	"log/slog"

	"github.com/rotisserie/eris"

	"TourScanner/internal/domain"
	"TourScanner/internal/ports"
)

// PageSourceConfig describes one polled page.
type PageSourceConfig struct {
	Name    string
	URL     string
	Headers map[string]string
	Ruleset domain.Ruleset
}

// PageSource implements Source by fetching one page and extracting its items.
type PageSource struct {
	cfg       PageSourceConfig
	fetcher   ports.Fetcher
	extractor ports.Extractor
	logger    *slog.Logger
}

var _ ports.Source = (*PageSource)(nil)

// NewPageSource wires a fetcher and an extractor to a configured page.
func NewPageSource(cfg PageSourceConfig, fetcher ports.Fetcher, extractor ports.Extractor, log *slog.Logger) *PageSource {
	if cfg.Ruleset.BaseURL == "" {
		cfg.Ruleset.BaseURL = cfg.URL
	}
	return &PageSource{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		logger:    log,
	}
}

// Name returns the configured source name.
func (s *PageSource) Name() string {
	return s.cfg.Name
}

// Scan fetches the page and applies the ruleset.
func (s *PageSource) Scan(ctx context.Context) ([]domain.RawItem, error) {
	s.debug("fetch page", "source", s.cfg.Name, "url", s.cfg.URL)

	raw, err := s.fetcher.Fetch(ctx, s.cfg.URL, s.cfg.Headers)
	if err != nil {
		return nil, eris.Wrapf(err, "source %s: fetch", s.cfg.Name)
	}

	items, err := s.extractor.Extract(raw, s.cfg.Ruleset)
	if err != nil {
		return nil, eris.Wrapf(err, "source %s: extract", s.cfg.Name)
	}

	s.debug("page extracted", "source", s.cfg.Name, "bytes", len(raw), "items", len(items))
	return items, nil
}

func (s *PageSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
