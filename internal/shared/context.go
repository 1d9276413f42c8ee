package shared

import "context"

// Actor describes the authenticated principal attached to a request.
type Actor struct {
	ID    int64
	Email string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(*Actor)
	return actor, ok && actor != nil
}

// ActorID returns the actor id or zero when unauthenticated.
func ActorID(ctx context.Context) int64 {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.ID
	}
	return 0
}
