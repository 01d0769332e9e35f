package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"caringcompass.org/internal/audit"
)

var _ audit.Sink = (*Store)(nil)

// Append writes one audit event. The table carries no update or delete path;
// rows only accumulate.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	metadata := []byte("{}")
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		metadata = data
	}
	var actorID any
	if event.ActorID != "" {
		actorID = event.ActorID
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_events (id, actor_id, action, success, metadata, occurred_at)
		values ($1, $2, $3, $4, $5, $6)
	`, event.ID, actorID, string(event.Action), event.Success, metadata, event.OccurredAt)
	return err
}
