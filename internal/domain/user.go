package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type ActorKind string

const (
	ActorUser  ActorKind = "user"
	ActorAdmin ActorKind = "admin"
)

func ParseActorKind(s string) (ActorKind, bool) {
	switch ActorKind(strings.ToLower(strings.TrimSpace(s))) {
	case ActorUser:
		return ActorUser, true
	case ActorAdmin:
		return ActorAdmin, true
	default:
		return "", false
	}
}

// Actor is a typed reference to whoever performs an action: an end user
// (volunteer, organization member, sponsor) or a back-office admin.
type Actor struct {
	Kind ActorKind `json:"type"`
	ID   int64     `json:"id"`
}

func UserActor(id int64) Actor  { return Actor{Kind: ActorUser, ID: id} }
func AdminActor(id int64) Actor { return Actor{Kind: ActorAdmin, ID: id} }

func (a Actor) IsAdmin() bool { return a.Kind == ActorAdmin }

func (a Actor) Valid() bool {
	return (a.Kind == ActorUser || a.Kind == ActorAdmin) && a.ID > 0
}

func (a Actor) String() string {
	return string(a.Kind) + ":" + strconv.FormatInt(a.ID, 10)
}

// ParseActor parses the "kind:id" form produced by String.
func ParseActor(s string) (Actor, error) {
	kindStr, idStr, ok := strings.Cut(s, ":")
	if !ok {
		return Actor{}, fmt.Errorf("invalid actor %q", s)
	}
	kind, ok := ParseActorKind(kindStr)
	if !ok {
		return Actor{}, fmt.Errorf("invalid actor kind %q", kindStr)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return Actor{}, fmt.Errorf("invalid actor id %q", idStr)
	}
	return Actor{Kind: kind, ID: id}, nil
}

// ActorProfile is the display snapshot attached to broadcast events.
type ActorProfile struct {
	Actor
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type actorCtxKey struct{}

// ContextWithActor stores the authenticated actor in a request-scoped context.
func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, a)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorCtxKey{}).(Actor)
	return a, ok && a.Valid()
}
