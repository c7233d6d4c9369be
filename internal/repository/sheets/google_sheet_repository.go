package sheets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/farmdesk/internal/config"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

// ReportRange is where batch reports are appended, one row per batch.
const ReportRange = "Reports!A:L"

// ReportHeader names the columns of ReportRange.
var ReportHeader = []any{
	"Date", "Farm", "Batch", "Age", "Population", "Mortality", "Culling",
	"Mortality %", "Avg weight (kg)", "Cumulative feed (kg)", "FCR", "IP",
}

var errEmptyRange = errors.New("sheetRange must not be empty")

// Repository defines the persistence operations supported by the Google Sheets adapter.
type Repository interface {
	WriteRow(ctx context.Context, sheetRange string, values []any) error
	ReadRange(ctx context.Context, sheetRange string) ([][]any, error)
	AppendBatchReports(ctx context.Context, reports []models.BatchReport) error
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	return newRepository(ctx, cfg.SpreadsheetID, logger,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
}

func newRepository(ctx context.Context, spreadsheetID string, logger *zap.Logger, opts ...option.ClientOption) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger,
	}, nil
}

// WriteRow appends the provided values to the supplied sheet range.
func (r *GoogleSheetRepository) WriteRow(ctx context.Context, sheetRange string, values []any) error {
	return r.append(ctx, sheetRange, [][]any{values})
}

// AppendBatchReports appends one row per report to ReportRange.
func (r *GoogleSheetRepository) AppendBatchReports(ctx context.Context, reports []models.BatchReport) error {
	if len(reports) == 0 {
		return nil
	}
	rows := make([][]any, len(reports))
	for i, rep := range reports {
		rows[i] = ReportRow(rep)
	}
	return r.append(ctx, ReportRange, rows)
}

func (r *GoogleSheetRepository) append(ctx context.Context, sheetRange string, rows [][]any) error {
	if sheetRange == "" {
		return errEmptyRange
	}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append rows into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("rows appended to sheet", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}

// ReadRange fetches a rectangular data range from the spreadsheet.
func (r *GoogleSheetRepository) ReadRange(ctx context.Context, sheetRange string) ([][]any, error) {
	if sheetRange == "" {
		return nil, errEmptyRange
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}

// ReportRow lays a report out in ReportHeader order.
func ReportRow(r models.BatchReport) []any {
	return []any{
		r.Date.Format(time.DateOnly),
		r.FarmName,
		r.LivestockName,
		r.Age,
		r.Population,
		r.Mortality,
		r.Culling,
		r.MortalityRate,
		r.AvgWeight,
		r.CumulativeFeed,
		r.FCR,
		r.IP,
	}
}
