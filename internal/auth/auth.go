package auth

import (
	"context"

	"github.com/google/uuid"
)

// ProjectAuthorizer is the external authorization collaborator.
// Registration calls it before touching any row; the rest of the system
// trusts the caller identity it was handed.
type ProjectAuthorizer interface {
	// HasProjectAccess reports whether actorID may act on projectID.
	HasProjectAccess(ctx context.Context, projectID, actorID uuid.UUID) (bool, error)
}

// AllowAll grants every actor access to every project. Used in insecure
// mode and in tests, the real check lives in the auth service.
type AllowAll struct {
}

func NewAllowAll() AllowAll {
	return AllowAll{}
}

func (AllowAll) HasProjectAccess(ctx context.Context, projectID, actorID uuid.UUID) (bool, error) {
	return true, nil
}

// StaticMembers authorizes from a fixed project -> members table.
type StaticMembers struct {
	members map[uuid.UUID]map[uuid.UUID]bool
}

func NewStaticMembers() *StaticMembers {
	return &StaticMembers{
		members: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (s *StaticMembers) Grant(projectID, actorID uuid.UUID) {
	if s.members[projectID] == nil {
		s.members[projectID] = make(map[uuid.UUID]bool)
	}
	s.members[projectID][actorID] = true
}

func (s *StaticMembers) HasProjectAccess(ctx context.Context, projectID, actorID uuid.UUID) (bool, error) {
	return s.members[projectID][actorID], nil
}
