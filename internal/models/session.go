package models

import "time"

// Session is one in-progress product configuration. The catalog descriptor
// is read-only for the session's lifetime; Selections and Snapshot are
// replaced wholesale on every recompute.
type Session struct {
	ID         string               `json:"id"`
	TenantID   string               `json:"tenantId"`
	ProductID  string               `json:"productId"`
	Product    *ConfiguratorProduct `json:"-"`
	Selections Selections           `json:"selections"`
	Snapshot   Snapshot             `json:"snapshot"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// Detach returns a copy that is safe to serialize after the store lock is
// released. Recompute never edits Selections or Snapshot in place, so a
// shallow copy shares no data with a later mutation.
func (s *Session) Detach() *Session {
	copied := *s
	return &copied
}
