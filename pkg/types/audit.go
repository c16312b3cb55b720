package types

import "time"

type AuditActor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type AuditEntity struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// AuditEntry is an immutable record of a state changing action.
type AuditEntry struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Actor     *AuditActor    `json:"actor,omitempty"`
	Entity    *AuditEntity   `json:"entity,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ActorFromUser snapshots the acting user. A nil user means a system or anonymous action.
func ActorFromUser(u *User) *AuditActor {
	if u == nil {
		return nil
	}
	return &AuditActor{ID: u.ID, Name: u.Name, Role: u.Role}
}

type AuditLogView struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Entity    string    `json:"entity"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e *AuditEntry) View() *AuditLogView {
	view := &AuditLogView{
		ID:        e.ID,
		Action:    e.Action,
		Actor:     "system",
		Entity:    "—",
		CreatedAt: e.CreatedAt,
	}
	if e.Actor != nil && e.Actor.Name != "" {
		view.Actor = e.Actor.Name
	}
	if e.Entity != nil && e.Entity.Type != "" {
		view.Entity = e.Entity.Type
	}
	return view
}
