package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
	"github.com/mamadbah2/farmdesk/internal/repository/store"
	"github.com/mamadbah2/farmdesk/internal/service/bookkeeping"
	"github.com/mamadbah2/farmdesk/internal/service/reporting"
)

var (
	// ErrInvalidArguments indicates the command payload could not be parsed.
	ErrInvalidArguments = errors.New("invalid command arguments")
	// ErrUnsupportedCommand indicates we do not support the requested command.
	ErrUnsupportedCommand = errors.New("unsupported command")
	// ErrUnknownSender indicates the phone number belongs to no active user.
	ErrUnknownSender = errors.New("unknown sender")
)

// HelpText lists the commands workers can send.
const HelpText = `Commands:
/mortality <batch> <qty> [reason]
/cull <batch> <qty> [reason]
/feed <batch> <feed-code> <kg>
/status <batch>
/help`

// Books is the bookkeeping surface the dispatcher writes through.
type Books interface {
	Deplete(ctx context.Context, p access.Principal, in bookkeeping.DepletionInput) (*models.LivestockDepletion, error)
	UseFeed(ctx context.Context, p access.Principal, in bookkeeping.FeedUsageInput) (*models.FeedUsage, error)
}

// Reports resolves batches and their performance.
type Reports interface {
	ResolveBatch(ctx context.Context, p access.Principal, ref string) (*models.Livestock, error)
	BatchPerformance(ctx context.Context, p access.Principal, livestockID uint) (*models.BatchReport, error)
}

// Directory maps a sender phone number to the acting principal.
type Directory interface {
	ByPhone(ctx context.Context, phone string) (*models.User, error)
	Principal(ctx context.Context, user *models.User) (access.Principal, error)
}

// Feeds finds feeds by code.
type Feeds interface {
	FindBy(ctx context.Context, column string, value any) (*models.Feed, error)
}

// Invalidator drops cached grid counts after a write.
type Invalidator interface {
	Invalidate(ctx context.Context, table string) error
}

// Dispatcher executes parsed worker commands.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	books   Books
	reports Reports
	users   Directory
	feeds   Feeds
	cache   Invalidator
	logger  *zap.Logger
}

// Option configures the dispatcher.
type Option func(*Service)

// WithInvalidator clears grid counts touched by command writes.
func WithInvalidator(cache Invalidator) Option {
	return func(s *Service) { s.cache = cache }
}

// NewService constructs a command dispatcher.
func NewService(books Books, reports Reports, users Directory, feeds Feeds, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{books: books, reports: reports, users: users, feeds: feeds, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleCommand runs a command on behalf of the sender and returns the reply.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandHelp:
		return HelpText, nil
	case models.CommandUnknown:
		return "", ErrUnsupportedCommand
	}

	p, err := s.principal(ctx, sender)
	if err != nil {
		return "", err
	}

	switch cmd.Type {
	case models.CommandMortality:
		return s.deplete(ctx, p, cmd, "mortality")
	case models.CommandCull:
		return s.deplete(ctx, p, cmd, "culling")
	case models.CommandFeed:
		return s.useFeed(ctx, p, cmd)
	case models.CommandStatus:
		return s.status(ctx, p, cmd)
	default:
		return "", ErrUnsupportedCommand
	}
}

func (s *Service) principal(ctx context.Context, phone string) (access.Principal, error) {
	user, err := s.users.ByPhone(ctx, phone)
	if errors.Is(err, store.ErrNotFound) {
		return access.Principal{}, fmt.Errorf("%w: %s", ErrUnknownSender, phone)
	}
	if err != nil {
		return access.Principal{}, err
	}
	p, err := s.users.Principal(ctx, user)
	if errors.Is(err, store.ErrInactiveUser) {
		return access.Principal{}, fmt.Errorf("%w: %s", ErrUnknownSender, phone)
	}
	return p, err
}

func (s *Service) deplete(ctx context.Context, p access.Principal, cmd models.Command, kind string) (string, error) {
	if len(cmd.Args) < 2 {
		return "", ErrInvalidArguments
	}
	qty, err := strconv.Atoi(cmd.Args[1])
	if err != nil || qty <= 0 {
		return "", ErrInvalidArguments
	}
	batch, err := s.reports.ResolveBatch(ctx, p, cmd.Args[0])
	if err != nil {
		return "", err
	}
	d, err := s.books.Deplete(ctx, p, bookkeeping.DepletionInput{
		LivestockID: batch.ID,
		Type:        kind,
		Quantity:    qty,
		Reason:      strings.Join(cmd.Args[2:], " "),
	})
	if err != nil {
		return "", err
	}
	s.invalidate(ctx, "depletions")
	msg := fmt.Sprintf("%s logged for %s on %s: %d birds.", label(kind), batch.Name, d.Date.Format("2006-01-02"), d.Quantity)
	if d.Reason != "" {
		msg += fmt.Sprintf(" Reason: %s.", d.Reason)
	}
	return msg + s.population(ctx, p, batch.ID), nil
}

func (s *Service) useFeed(ctx context.Context, p access.Principal, cmd models.Command) (string, error) {
	if len(cmd.Args) != 3 {
		return "", ErrInvalidArguments
	}
	kg, err := strconv.ParseFloat(cmd.Args[2], 64)
	if err != nil || kg <= 0 {
		return "", ErrInvalidArguments
	}
	batch, err := s.reports.ResolveBatch(ctx, p, cmd.Args[0])
	if err != nil {
		return "", err
	}
	feed, err := s.feeds.FindBy(ctx, "code", strings.ToUpper(cmd.Args[1]))
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: unknown feed %s", ErrInvalidArguments, strings.ToUpper(cmd.Args[1]))
	}
	if err != nil {
		return "", err
	}
	u, err := s.books.UseFeed(ctx, p, bookkeeping.FeedUsageInput{LivestockID: batch.ID, FeedID: feed.ID, Quantity: kg})
	if err != nil {
		return "", err
	}
	s.invalidate(ctx, "feed-usages")
	return fmt.Sprintf("Feed usage saved for %s on %s: %.2f kg %s.", batch.Name, u.Date.Format("2006-01-02"), u.Quantity, feed.Code), nil
}

func (s *Service) status(ctx context.Context, p access.Principal, cmd models.Command) (string, error) {
	if len(cmd.Args) != 1 {
		return "", ErrInvalidArguments
	}
	batch, err := s.reports.ResolveBatch(ctx, p, cmd.Args[0])
	if err != nil {
		return "", err
	}
	r, err := s.reports.BatchPerformance(ctx, p, batch.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%s)\nDay %d, population %d of %d\nMortality %d (%.2f%%), culled %d, sold %d\nBW %.3f kg, feed %.2f kg, FCR %.3f, IP %.0f",
		r.LivestockName, r.FarmName, r.Age, r.Population, r.Initial,
		r.Mortality, r.MortalityRate, r.Culling, r.Sold,
		r.AvgWeight, r.CumulativeFeed, r.FCR, r.IP), nil
}

// population appends the remaining population; summary failures only cost the line.
func (s *Service) population(ctx context.Context, p access.Principal, livestockID uint) string {
	r, err := s.reports.BatchPerformance(ctx, p, livestockID)
	if err != nil {
		s.logger.Debug("performance summary failed", zap.Error(err))
		return ""
	}
	return fmt.Sprintf("\nPopulation now %d, mortality %.2f%%.", r.Population, r.MortalityRate)
}

func (s *Service) invalidate(ctx context.Context, grids ...string) {
	if s.cache == nil {
		return
	}
	for _, g := range grids {
		if err := s.cache.Invalidate(ctx, g); err != nil {
			s.logger.Warn("grid count invalidation failed", zap.String("table", g), zap.Error(err))
		}
	}
}

func label(kind string) string {
	if kind == "culling" {
		return "Culling"
	}
	return "Mortality"
}

// Reply turns a dispatch error into text for the worker.
func Reply(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedCommand):
		return "Unknown command.\n" + HelpText
	case errors.Is(err, ErrInvalidArguments):
		return "Could not read that command.\n" + HelpText
	case errors.Is(err, ErrUnknownSender):
		return "This number is not registered. Ask your farm manager to add it."
	case errors.Is(err, reporting.ErrBatchNotFound):
		return "No open batch with that name on your farms."
	case errors.Is(err, access.ErrForbidden), errors.Is(err, bookkeeping.ErrFarmNotAllowed):
		return "You are not allowed to do that."
	case errors.Is(err, bookkeeping.ErrInsufficientPopulation):
		return "That is more birds than the batch holds."
	case errors.Is(err, bookkeeping.ErrInsufficientStock):
		return "Not enough feed in stock on this farm."
	case errors.Is(err, bookkeeping.ErrInvalidInput):
		return "Invalid values: " + err.Error()
	default:
		return "Something went wrong, please try again later."
	}
}
