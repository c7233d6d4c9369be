package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmdesk/internal/config"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

type fakeReports struct {
	dates []time.Time
	err   error
}

func (f *fakeReports) DailySummary(_ context.Context, date time.Time) (string, error) {
	f.dates = append(f.dates, date)
	return "Daily report " + date.Format(time.DateOnly), f.err
}

type outbox []models.OutboundMessageRequest

func (o *outbox) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	*o = append(*o, req)
	return nil
}

func TestSendDailyReportUsesLocalDay(t *testing.T) {
	reports := &fakeReports{}
	sent := &outbox{}
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "Asia/Jakarta", RecipientID: "62811"}, reports, sent, nil)
	require.NoError(t, err)
	// 18:30 UTC is already the next day in Jakarta.
	s.now = func() time.Time { return time.Date(2026, 3, 9, 18, 30, 0, 0, time.UTC) }

	require.NoError(t, s.SendDailyReport(context.Background()))
	require.Len(t, reports.dates, 1)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), reports.dates[0])
	require.Len(t, *sent, 1)
	assert.Equal(t, "62811", (*sent)[0].To)
	assert.Equal(t, "Daily report 2026-03-10", (*sent)[0].Message)
}

func TestSendDailyReportWithoutRecipient(t *testing.T) {
	sent := &outbox{}
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "UTC"}, &fakeReports{}, sent, nil)
	require.NoError(t, err)
	require.NoError(t, s.SendDailyReport(context.Background()))
	assert.Empty(t, *sent)

	s.reporting = &fakeReports{err: errors.New("db down")}
	assert.ErrorContains(t, s.SendDailyReport(context.Background()), "db down")
}

func TestStartValidatesSchedule(t *testing.T) {
	_, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "Mars/Olympus"}, &fakeReports{}, nil, nil)
	assert.Error(t, err)

	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "every tuesday", Timezone: "UTC"}, &fakeReports{}, nil, nil)
	require.NoError(t, err)
	assert.Error(t, s.Start())

	s, err = NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "UTC"}, &fakeReports{}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	s.Stop()
}
