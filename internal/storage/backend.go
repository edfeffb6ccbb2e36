package storage

import "context"

// Backend persists the whole Users document.
//
// Load never fails: a missing or unreadable document is reported through the
// backend's logger and yields an empty Users. Save replaces the previous
// document entirely.
type Backend interface {
	Load(ctx context.Context) Users
	Save(ctx context.Context, users Users) error
	Close() error
}

func normalize(users Users) {
	for name, u := range users {
		if u == nil {
			delete(users, name)
			continue
		}
		u.Normalize()
	}
}
