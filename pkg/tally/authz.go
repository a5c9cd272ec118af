package tally

import "context"

// IsOwner reports whether the actor owns the session.
func IsOwner(session Session, actor PlayerID) bool {
	return session.OwnerID == actor
}

// IsMember reports whether the actor appears in the member set.
func IsMember(members []Membership, actor PlayerID) bool {
	for _, member := range members {
		if member.PlayerID == actor {
			return true
		}
	}
	return false
}

// requireOwner loads the session and fails with ErrNotSessionOwner before
// any state is written.
func requireOwner(ctx context.Context, store Store, sessionID SessionID, actor PlayerID) (Session, error) {
	session, err := store.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if !IsOwner(session, actor) {
		return Session{}, ErrNotSessionOwner
	}
	return session, nil
}

// requireMember loads the session and fails with ErrNotSessionMember
// before any state is written.
func requireMember(ctx context.Context, store Store, sessionID SessionID, actor PlayerID) (Session, error) {
	session, err := store.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	members, err := store.ListMembers(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if !IsMember(members, actor) {
		return Session{}, ErrNotSessionMember
	}
	return session, nil
}
