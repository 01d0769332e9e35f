package audit

import (
	"context"
	"encoding/json"

	"caringcompass.org/internal/obs"
)

// LogSink emits events as JSON lines through the shared logger. It is the
// default sink when no database is configured; production deployments layer
// the postgres sink on top.
type LogSink struct{}

func (LogSink) Append(ctx context.Context, event Event) error {
	line := map[string]any{
		"ts":      event.OccurredAt,
		"type":    "audit",
		"id":      event.ID,
		"action":  event.Action,
		"success": event.Success,
	}
	if event.ActorID != "" {
		line["actor_id"] = event.ActorID
	}
	if len(event.Metadata) > 0 {
		line["metadata"] = event.Metadata
	}
	data, err := json.Marshal(line)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
