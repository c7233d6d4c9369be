package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/config"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
	"github.com/mamadbah2/farmdesk/internal/service/commands"
	client "github.com/mamadbah2/farmdesk/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

var (
	// ErrVerification is returned when the webhook handshake fails.
	ErrVerification = errors.New("webhook verification failed")
	// ErrNotConfigured is returned when outbound messaging has no client.
	ErrNotConfigured = errors.New("whatsapp messaging is not configured")
)

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Observer records inbound and outbound messages.
type Observer interface {
	ObserveMessage(direction string, err error)
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commands.Dispatcher
	observer   Observer
	logger     *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance. A nil client disables replies.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, c client.Client, dispatcher commands.Dispatcher, observer Observer, logger *zap.Logger) *MetaWhatsAppService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaWhatsAppService{
		cfg:        cfg,
		client:     c,
		dispatcher: dispatcher,
		observer:   observer,
		logger:     logger,
	}
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", fmt.Errorf("%w: missing mode or verify token", ErrVerification)
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("%w: unsupported hub.mode %s", ErrVerification, mode)
	}

	if s.cfg.VerifyToken == "" || verifyToken != s.cfg.VerifyToken {
		return "", fmt.Errorf("%w: invalid verify token", ErrVerification)
	}

	return challenge, nil
}

// HandleWebhook runs every inbound message and replies to its sender.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				err := s.handleInboundMessage(ctx, msg)
				s.observe("inbound", err)
				if err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := extractMessageText(msg)
	if text == "" {
		s.logger.Debug("ignoring message without text", zap.String("type", msg.Type), zap.String("message_id", msg.ID))
		return nil
	}

	cmd := models.ParseCommand(text)
	reply, err := s.dispatcher.HandleCommand(ctx, cmd, msg.From)
	if err != nil {
		s.logger.Info("command rejected",
			zap.String("from", msg.From),
			zap.String("command", string(cmd.Type)),
			zap.Error(err))
		reply = commands.Reply(err)
	} else {
		s.logger.Info("command handled",
			zap.String("from", msg.From),
			zap.String("command", string(cmd.Type)),
			zap.Strings("args", cmd.Args))
	}

	return s.SendOutbound(ctx, models.OutboundMessageRequest{To: msg.From, Message: reply})
}

// SendOutbound pushes a text message through the Cloud API.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	if s.client == nil {
		return ErrNotConfigured
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	s.observe("outbound", err)
	if err != nil {
		return fmt.Errorf("send message to %s: %w", req.To, err)
	}
	return nil
}

func (s *MetaWhatsAppService) observe(direction string, err error) {
	if s.observer != nil {
		s.observer.ObserveMessage(direction, err)
	}
}

func extractMessageText(msg models.InboundMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}

	if msg.Interactive != nil {
		if msg.Interactive.ButtonReply != nil {
			return msg.Interactive.ButtonReply.ID
		}
		if msg.Interactive.ListReply != nil {
			return msg.Interactive.ListReply.ID
		}
	}

	return ""
}
