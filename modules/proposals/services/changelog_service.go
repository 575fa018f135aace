package services

import (
	"context"
	"strings"
	"time"

	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
)

type ReportSettings struct {
	// ISO 4217 code of sanctioned amounts.
	Currency string
	Location *time.Location
}

// ChangeLogService answers read queries over the changelog.
type ChangeLogService struct {
	repo     changelog.Repository
	settings ReportSettings
	now      func() time.Time
}

func NewChangeLogService(repo changelog.Repository, settings ReportSettings, opts ...Option) *ChangeLogService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.Currency == "" {
		settings.Currency = "INR"
	}
	return &ChangeLogService{repo: repo, settings: settings, now: buildOptions(opts).now}
}

func (s *ChangeLogService) Settings() ReportSettings {
	return s.settings
}

// WeekBounds returns the Monday 00:00 to Sunday 23:59:59 week containing
// day in the report timezone.
func (s *ChangeLogService) WeekBounds(day time.Time) (time.Time, time.Time) {
	local := day.In(s.settings.Location)
	offset := (int(local.Weekday()) + 6) % 7
	y, m, d := local.AddDate(0, 0, -offset).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.settings.Location)
	return start, start.AddDate(0, 0, 7).Add(-time.Second)
}

// WeeklyChangeLog returns the entries with weekStart <= timestamp <= weekEnd
// at second granularity, so weekEnd covers its whole final second. Entries
// come back in ascending timestamp order.
func (s *ChangeLogService) WeeklyChangeLog(ctx context.Context, weekStart, weekEnd time.Time) ([]*changelog.Entry, error) {
	from := weekStart.Truncate(time.Second)
	to := weekEnd.Truncate(time.Second).Add(time.Second - time.Nanosecond)
	if to.Before(from) {
		return nil, failWith(ctx, "weekly_changelog", changelog.ErrInvalidRange)
	}
	entries, err := s.repo.List(ctx, &changelog.FindParams{From: from, To: to})
	if err != nil {
		return nil, failWith(ctx, "weekly_changelog", err)
	}
	return entries, nil
}

// History returns every entry of one proposal, oldest first.
func (s *ChangeLogService) History(ctx context.Context, code string) ([]*changelog.Entry, error) {
	entries, err := s.repo.List(ctx, &changelog.FindParams{ProposalCode: strings.TrimSpace(code)})
	if err != nil {
		return nil, failWith(ctx, "proposal_history", err)
	}
	return entries, nil
}

// WeeklyReport loads the week containing weekStart for rendering.
func (s *ChangeLogService) WeeklyReport(ctx context.Context, weekStart time.Time) (*WeeklyReport, error) {
	start, end := s.WeekBounds(weekStart)
	entries, err := s.WeeklyChangeLog(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return &WeeklyReport{
		Start:       start,
		End:         end,
		GeneratedAt: s.now().In(s.settings.Location),
		Entries:     entries,
		settings:    s.settings,
	}, nil
}
