package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/joescharf/relstatus/internal/gauge"
	"github.com/joescharf/relstatus/internal/gerrit"
	"github.com/joescharf/relstatus/internal/launchpad"
	"github.com/joescharf/relstatus/internal/models"
	"github.com/joescharf/relstatus/internal/report"
	"github.com/joescharf/relstatus/internal/review"
)

// RunConfig is the validated configuration of one run.
type RunConfig struct {
	Series       string
	Products     []string
	ReleaseDate  time.Time
	Schedule     []gauge.Entry
	ReviewHost   string
	ReviewPort   int
	Review       gerrit.Config
	LaunchpadURL string
}

// Options returns the report options for c.
func (c *RunConfig) Options() report.Options {
	return report.Options{
		Series:      c.Series,
		Products:    c.Products,
		Schedule:    c.Schedule,
		ReleaseDate: c.ReleaseDate,
	}
}

// Validate checks the settings every command needs.
func (c *RunConfig) Validate() error {
	var errs []error
	if c.Series == "" {
		errs = append(errs, errors.New("series is not set"))
	}
	if len(c.Products) == 0 {
		errs = append(errs, errors.New("products is empty"))
	}
	if c.ReleaseDate.IsZero() {
		errs = append(errs, errors.New("release_date is not set"))
	}
	if c.ReviewHost == "" {
		errs = append(errs, errors.New("review.host is not set"))
	}
	if c.ReviewPort <= 0 {
		errs = append(errs, fmt.Errorf("review.port must be positive, got %d", c.ReviewPort))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// loadGaugeConfig reads just what the gauge needs, so the gauge works
// without any service settings.
func loadGaugeConfig() (*RunConfig, error) {
	schedule, err := parseSchedule(viper.Get("milestones"))
	if err != nil {
		return nil, err
	}
	if len(schedule) < models.MinScheduleEntries {
		return nil, fmt.Errorf("milestones: %w: need at least %d entries, got %d",
			gauge.ErrInsufficientSchedule, models.MinScheduleEntries, len(schedule))
	}
	release, err := parseReleaseDate(viper.Get("release_date"))
	if err != nil {
		return nil, err
	}
	return &RunConfig{
		Series:      viper.GetString("series"),
		ReleaseDate: release,
		Schedule:    schedule,
	}, nil
}

// loadRunConfig reads and validates the full configuration from viper.
func loadRunConfig() (*RunConfig, error) {
	cfg, err := loadGaugeConfig()
	if err != nil {
		return nil, err
	}
	cfg.Products = viper.GetStringSlice("products")
	cfg.ReviewHost = viper.GetString("review.host")
	cfg.ReviewPort = viper.GetInt("review.port")
	cfg.Review = gerrit.Config{
		Branch:        viper.GetString("review.branch"),
		MaxAge:        viper.GetString("review.max_age"),
		ProjectPrefix: viper.GetString("review.project_prefix"),
	}
	cfg.LaunchpadURL = viper.GetString("launchpad.api_url")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseSchedule accepts a list of [days, "label"] pairs or {days, label} maps.
func parseSchedule(raw any) ([]gauge.Entry, error) {
	if raw == nil {
		return nil, nil
	}
	items, err := cast.ToSliceE(raw)
	if err != nil {
		return nil, fmt.Errorf("milestones: expected a list: %w", err)
	}

	entries := make([]gauge.Entry, 0, len(items))
	for i, item := range items {
		var days, label any
		switch v := item.(type) {
		case []any:
			if len(v) != 2 {
				return nil, fmt.Errorf("milestones[%d]: expected [days, label], got %d values", i, len(v))
			}
			days, label = v[0], v[1]
		case map[string]any:
			days, label = v["days"], v["label"]
		default:
			return nil, fmt.Errorf("milestones[%d]: unsupported entry %v", i, item)
		}

		d, err := cast.ToIntE(days)
		if err != nil {
			return nil, fmt.Errorf("milestones[%d]: days: %w", i, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("milestones[%d]: %w: negative days %d", i, gauge.ErrInvalidSchedule, d)
		}
		l := cast.ToString(label)
		if l == "" {
			return nil, fmt.Errorf("milestones[%d]: label is empty", i)
		}
		if strings.ContainsAny(l, gauge.TickReserved) {
			return nil, fmt.Errorf("milestones[%d]: %w: label %q contains one of %s", i, gauge.ErrInvalidSchedule, l, gauge.TickReserved)
		}
		entries = append(entries, gauge.Entry{Days: d, Label: l})
	}
	return entries, nil
}

// parseReleaseDate accepts a YYYY-MM-DD string or a YAML date.
func parseReleaseDate(raw any) (time.Time, error) {
	if s, ok := raw.(string); ok {
		if s == "" {
			return time.Time{}, errors.New("release_date is not set")
		}
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("release_date: expected YYYY-MM-DD: %w", err)
		}
		return t, nil
	}
	t, err := cast.ToTimeE(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("release_date: %w", err)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// pipeline builds fresh reports from a RunConfig. Each call starts from an
// empty Launchpad memo and a fresh review index.
type pipeline struct {
	cfg     *RunConfig
	now     func() time.Time
	logf    func(format string, a ...any)
	sources func() (report.BlueprintSource, report.ReviewSource)
}

// openPipeline is replaced in tests to run commands against fake services.
var openPipeline = newPipeline

// newPipeline logs progress to stderr so it never lands inside a rendered
// document on stdout.
func newPipeline(cfg *RunConfig) *pipeline {
	p := &pipeline{cfg: cfg, now: time.Now, logf: ui.Trace}
	p.sources = p.services
	return p
}

func (p *pipeline) services() (report.BlueprintSource, report.ReviewSource) {
	fetcher := gerrit.NewFetcher(gerrit.NewSSHQuerier(p.cfg.ReviewHost, p.cfg.ReviewPort), p.cfg.Review)
	fetcher.Logf = p.logf
	return launchpad.NewClient(p.cfg.LaunchpadURL, nil), fetcher
}

func (p *pipeline) builder() *report.Builder {
	b := report.NewBuilder(p.sources())
	b.Correlator = review.NewCorrelator(p.cfg.ReviewHost)
	b.Now = p.now
	b.Logf = p.logf
	return b
}

func (p *pipeline) Report(ctx context.Context) (*report.Report, error) {
	return p.builder().Build(ctx, p.cfg.Options())
}

func (p *pipeline) Gauge() (gauge.Description, error) {
	return gauge.Compute(p.cfg.Schedule, p.cfg.ReleaseDate, p.now())
}
