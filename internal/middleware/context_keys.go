package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// contextKey is a private type for values stored in request contexts.
// Using a custom type prevents collisions.
type contextKey string

const (
	loggerKey     = contextKey("logger")
	actorKey      = contextKey("actor")
	authMethodKey = contextKey("authMethod")
)

const (
	authMethodAdminJWT     = "admin_jwt"
	authMethodServiceToken = "service_token"
)

// GetActorFromContext returns the authenticated staff subject for admin routes,
// or the service name for settlement routes.
func GetActorFromContext(c *gin.Context) (string, bool) {
	return ActorFromCtx(c.Request.Context())
}

// ActorFromCtx is GetActorFromContext for a standard context.
func ActorFromCtx(ctx context.Context) (string, bool) {
	actor, ok := ctx.Value(actorKey).(string)
	return actor, ok && actor != ""
}

// withActor stores the actor and its auth method in the request and Gin contexts,
// and enriches the request logger with it.
func withActor(c *gin.Context, actor, method string) {
	ctx := context.WithValue(c.Request.Context(), actorKey, actor)
	ctx = context.WithValue(ctx, authMethodKey, method)
	logger := GetLoggerFromCtx(ctx).With("actor", actor, "auth_method", method)
	c.Request = c.Request.WithContext(WithLogger(ctx, logger))
	c.Set(string(actorKey), actor)
	c.Set(string(authMethodKey), method)
}
