package bloom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	energy "campus-energy/internal/energy/domain"
	"campus-energy/internal/observability/metrics"
)

// DailyUpserter persists canonical daily rows.
type DailyUpserter interface {
	UpsertDaily(ctx context.Context, rows []energy.CanonicalRow) (int, error)
}

// FetchResult describes one fetch run.
type FetchResult struct {
	Day     time.Time `json:"day"`
	SiteID  string    `json:"site_id"`
	Written int       `json:"written"`
}

// FetchJob pulls yesterday's metrics and upserts them into the daily table.
type FetchJob struct {
	client     *Client
	creds      Credentials
	reconciler DailyUpserter
	logger     *zap.Logger
}

// NewFetchJob constructs a FetchJob.
func NewFetchJob(client *Client, creds Credentials, reconciler DailyUpserter, logger *zap.Logger) (*FetchJob, error) {
	if client == nil {
		return nil, errors.New("bloom: client is required")
	}
	if reconciler == nil {
		return nil, errors.New("bloom: reconciler is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FetchJob{client: client, creds: creds, reconciler: reconciler, logger: logger}, nil
}

// Run fetches the day before now. A day the API has no data for returns energy.ErrNoData.
func (j *FetchJob) Run(ctx context.Context, now time.Time) (result FetchResult, err error) {
	start := time.Now()
	result.Day = energy.DayStart(now).AddDate(0, 0, -1)
	defer func() {
		outcome := metrics.Result(err)
		if errors.Is(err, energy.ErrNoData) {
			outcome = metrics.ResultSkipped
		}
		metrics.ObserveFetch(outcome, time.Since(start))
	}()

	session, err := j.client.Login(ctx, j.creds)
	if err != nil {
		return result, err
	}
	siteID, err := j.client.SiteID(ctx, session)
	if err != nil {
		return result, err
	}
	result.SiteID = siteID

	data, err := j.client.DailyExtract(ctx, session, siteID, result.Day)
	if err != nil {
		return result, err
	}
	if data == nil {
		j.logger.Warn("bloom returned no data", zap.Time("day", result.Day), zap.String("site_id", siteID))
		return result, fmt.Errorf("bloom %s: %w", result.Day.Format("2006-01-02"), energy.ErrNoData)
	}

	row := data.CanonicalRow()
	if data.RecordedAt == "" {
		row[energy.FieldDateLocal] = result.Day
	}
	written, err := j.reconciler.UpsertDaily(ctx, []energy.CanonicalRow{row})
	if err != nil {
		return result, err
	}
	result.Written = written
	j.logger.Info("bloom data stored",
		zap.Time("day", result.Day),
		zap.String("site_id", siteID),
		zap.Int("written", written),
	)
	return result, nil
}
