package files

import (
	"context"
	"log/slog"

	"lite-drive/internal/models"
)

type EventJournal interface {
	LogEvent(ctx context.Context, userID int64, eventType string, payload interface{}) ([]byte, error)
}

type Publisher interface {
	PublishEvent(userID int64, eventData []byte)
}

// JournalNotifier records file events in the journal and pushes the same
// message to the owner's live connections.
type JournalNotifier struct {
	journal EventJournal
	hub     Publisher
	logger  *slog.Logger
}

func NewJournalNotifier(journal EventJournal, hub Publisher, logger *slog.Logger) *JournalNotifier {
	return &JournalNotifier{journal: journal, hub: hub, logger: logger}
}

func (n *JournalNotifier) FileUploaded(ctx context.Context, ownerID int64, file *models.File) {
	n.publish(ctx, ownerID, models.EventFileUploaded, file)
}

func (n *JournalNotifier) FileDeleted(ctx context.Context, ownerID int64, file *models.File) {
	n.publish(ctx, ownerID, models.EventFileDeleted, map[string]string{"id": file.ID})
}

func (n *JournalNotifier) publish(ctx context.Context, ownerID int64, eventType string, payload interface{}) {
	msg, err := n.journal.LogEvent(ctx, ownerID, eventType, payload)
	if err != nil {
		n.logger.Error("failed to log event", "event_type", eventType, "user_id", ownerID, "error", err)
		return
	}
	if n.hub != nil {
		n.hub.PublishEvent(ownerID, msg)
	}
}
