package http

import (
	"context"

	"github.com/example/room-access/internal/application"
)

type contextKey string

const (
	principalContextKey     contextKey = "principal"
	userIDContextKey        contextKey = "user_id"
	roomIDContextKey        contextKey = "room_id"
	restrictionIDContextKey contextKey = "restriction_id"
	trackerIDContextKey     contextKey = "tracker_id"
	lapseIDContextKey       contextKey = "lapse_id"
	requestIDContextKey     contextKey = "request_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithUserID injects the user identifier resolved from the request path.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext extracts a user identifier previously associated with the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey).(string)
	return id, ok
}

// ContextWithRoomID injects the room identifier resolved from the request path.
func ContextWithRoomID(ctx context.Context, roomID string) context.Context {
	return context.WithValue(ctx, roomIDContextKey, roomID)
}

// RoomIDFromContext extracts a room identifier previously associated with the context.
func RoomIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(roomIDContextKey).(string)
	return id, ok
}

// ContextWithRestrictionID injects the restriction identifier resolved from the request path.
func ContextWithRestrictionID(ctx context.Context, restrictionID string) context.Context {
	return context.WithValue(ctx, restrictionIDContextKey, restrictionID)
}

// RestrictionIDFromContext extracts a restriction identifier previously associated with the context.
func RestrictionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(restrictionIDContextKey).(string)
	return id, ok
}

// ContextWithTrackerID injects the tracker identifier resolved from the request path.
func ContextWithTrackerID(ctx context.Context, trackerID string) context.Context {
	return context.WithValue(ctx, trackerIDContextKey, trackerID)
}

// TrackerIDFromContext extracts a tracker identifier previously associated with the context.
func TrackerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(trackerIDContextKey).(string)
	return id, ok
}

// ContextWithLapseID injects the lapse identifier resolved from the request path.
func ContextWithLapseID(ctx context.Context, lapseID string) context.Context {
	return context.WithValue(ctx, lapseIDContextKey, lapseID)
}

// LapseIDFromContext extracts a lapse identifier previously associated with the context.
func LapseIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(lapseIDContextKey).(string)
	return id, ok
}

// ContextWithRequestID injects the membership-request identifier resolved from the request path.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext extracts a membership-request identifier previously associated with the context.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok
}
