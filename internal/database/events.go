package database

import (
	"context"
	"encoding/json"
	"fmt"

	"lite-drive/internal/models"
)

// LogEvent journals an event and returns the JSON message that was stored, so
// callers can push the same bytes to live clients.
func (q *Queries) LogEvent(ctx context.Context, userID int64, eventType string, payload interface{}) ([]byte, error) {
	eventMsg := map[string]interface{}{
		"event_type": eventType,
		"payload":    payload,
	}
	eventBytes, err := json.Marshal(eventMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `INSERT INTO event_journal (user_id, event_type, payload) VALUES ($1, $2, $3)`
	if _, err := q.db.Exec(ctx, query, userID, eventType, eventBytes); err != nil {
		return nil, err
	}

	return eventBytes, nil
}

func (q *Queries) GetEventsSince(ctx context.Context, userID int64, sinceID int64) ([]models.Event, error) {
	query := `
		SELECT id, event_type, event_time, payload
		FROM event_journal
		WHERE user_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT 100
	`
	rows, err := q.db.Query(ctx, query, userID, sinceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.EventTime,
			&event.Payload,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if events == nil {
		return []models.Event{}, nil
	}

	return events, nil
}
