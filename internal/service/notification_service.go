package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/events"
	"github.com/spec-kit/devlab/internal/notify"
)

// ApprovalSubject is the subject line of the approval e-mail.
const ApprovalSubject = "Cadastro aprovado no DevLab"

// NotificationService delivers e-mails and logs registration lifecycle events.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     notify.Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer notify.Mailer, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, t := range events.AllTypes {
		n.dispatcher.Subscribe(t, n.logEvent)
	}
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("registration_id", event.RegistrationID),
		zap.Any("payload", event.Payload))
	return nil
}

// NotifyApproval e-mails the new student their username and registration number.
func (n *NotificationService) NotifyApproval(ctx context.Context, user *domain.User) error {
	if n.mailer == nil {
		return nil
	}
	msg := ApprovalMessage(user)
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send approval e-mail: %w", err)
	}
	n.logger.Debug("approval e-mail sent", zap.String("user_id", user.ID))
	return nil
}

// ApprovalMessage renders the approval e-mail for user.
func ApprovalMessage(user *domain.User) notify.Message {
	body := fmt.Sprintf("Seu cadastro foi aprovado!\n\nMatrícula: %s\nUsuário: %s\nAcesse o sistema com seu e-mail e senha cadastrados.",
		derefString(user.RegistrationNumber), user.Username)
	return notify.Message{To: user.Email, Subject: ApprovalSubject, Body: body}
}
