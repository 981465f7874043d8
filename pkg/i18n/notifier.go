package i18n

import (
	"context"
	"log/slog"

	"github.com/aretw0/resist/internal/logging"
	"github.com/aretw0/resist/pkg/domain"
	"golang.org/x/text/message"
)

// Sink receives localized notifications.
type Sink func(ctx context.Context, entity domain.EntityID, key domain.MessageKey, text string)

// Notifier implements ports.Notifier by localizing message keys before handing
// them to a sink (a chat line, a popup, a transcript).
type Notifier struct {
	printer *message.Printer
	sink    Sink
	logger  *slog.Logger
}

// NewNotifier creates a notifier printing in locale. A nil sink logs the text.
func NewNotifier(c *Catalog, locale string, sink Sink) *Notifier {
	n := &Notifier{
		printer: c.Printer(locale),
		sink:    sink,
		logger:  logging.NewNop(),
	}
	if n.sink == nil {
		n.sink = n.logSink
	}
	return n
}

// WithLogger sets the logger used by the default sink.
func (n *Notifier) WithLogger(logger *slog.Logger) *Notifier {
	if logger != nil {
		n.logger = logger
	}
	return n
}

// Text localizes a message key.
func (n *Notifier) Text(key domain.MessageKey) string {
	return n.printer.Sprintf(string(key))
}

// Notify localizes key and delivers it.
func (n *Notifier) Notify(ctx context.Context, entity domain.EntityID, key domain.MessageKey) {
	n.sink(ctx, entity, key, n.Text(key))
}

func (n *Notifier) logSink(ctx context.Context, entity domain.EntityID, key domain.MessageKey, text string) {
	n.logger.Info(text, "entity", entity, "key", key)
}
