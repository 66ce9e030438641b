package identity

import (
	"context"
)

// Template identifiers the gateway resolves to rendered messages.
// Rendering and delivery mechanics live behind the gateway; this package
// only picks templates and supplies their data.
const (
	TemplateVerifyEmail              = "verify-email"
	TemplateWelcome                  = "welcome"
	TemplateForgotPassword           = "forgot-password"
	TemplateVerifyNewEmail           = "verify-new-email"
	TemplateEmailChangedNotification = "email-changed-notification"
	TemplateEmailUpdateSuccess       = "email-update-success"
)

// NotificationGateway dispatches templated messages. Transport failure is
// reported as an error wrapping ErrDeliveryUnavailable semantics; whether
// that failure is fatal depends on the calling flow.
type NotificationGateway interface {
	Send(ctx context.Context, to, subject, templateID string, data map[string]any) error
}

// NotificationGatewayFunc adapts a function to the gateway interface
type NotificationGatewayFunc func(ctx context.Context, to, subject, templateID string, data map[string]any) error

// Send implements NotificationGateway
func (f NotificationGatewayFunc) Send(ctx context.Context, to, subject, templateID string, data map[string]any) error {
	if f == nil {
		return nil
	}
	return f(ctx, to, subject, templateID, data)
}

type noopNotificationGateway struct{}

func (noopNotificationGateway) Send(context.Context, string, string, string, map[string]any) error {
	return nil
}

// NewLogNotificationGateway returns a gateway that writes the dispatch to
// the logger instead of delivering, for development setups without a mail
// transport.
func NewLogNotificationGateway(logger Logger) NotificationGateway {
	if logger == nil {
		logger = defLogger{}
	}
	return NotificationGatewayFunc(func(ctx context.Context, to, subject, templateID string, data map[string]any) error {
		logger.Info("notification dispatch to=%s subject=%q template=%s", to, subject, templateID)
		return nil
	})
}
