// Package http provides HTTP handlers and middleware for the room access API.
//
// The router exposes the following endpoints:
//   - POST /signup: unauthenticated self-service registration. Body carries the
//     `userRequest` payload defined in user_handler.go; admin flags are ignored.
//   - POST /sessions: issues a bearer token. Body: {"email","passcode"}. Response:
//     {"token","expires_at","user"}.
//   - DELETE /sessions/current: revokes the token in the Authorization header.
//   - GET/POST /users, GET/PUT/DELETE /users/{id}: account management. Listing
//     and creation require admin privileges; a user may read and update their
//     own account. DELETE deactivates rather than removes.
//   - GET/POST /rooms, GET/PUT/DELETE /rooms/{id}: room catalog endpoints
//     exchanging the `roomDTO` payload defined in room_handler.go.
//   - GET/POST /roles: the role catalog referenced by memberships and
//     restrictions.
//   - GET/POST /rooms/{id}/members, DELETE /rooms/{id}/members/{userID}: room
//     membership management.
//   - POST /requests, POST /requests/{id}/approve, POST /requests/{id}/reject,
//     GET /rooms/{id}/requests, GET /users/{id}/requests: the room-join request
//     workflow. Users petition for access; admins approve (naming the role the
//     membership is granted under) or reject.
//   - GET/POST /rooms/{id}/restrictions, GET/PUT/DELETE /restrictions/{id}:
//     weekly access windows. Days travel as the packed weekday bitmask and the
//     window bounds as "HH:mm:ss" strings.
//   - GET/POST /rooms/{id}/trackers, GET/PATCH/DELETE /trackers/{id}: streak
//     trackers attached to a room. PATCH applies a sparse payload; DELETE
//     deactivates and is reversible through the lapse log.
//   - POST /trackers/{id}/reset: restarts the timer, promoting the streak to
//     the record when it beats it.
//   - GET /trackers/{id}/lapses, POST /lapses/{id}/rollback: the append-only
//     change log and single-step undo.
//   - GET /rooms/{id}/logs, GET /rooms/{id}/logs/stats: admin-only access
//     attempt history and aggregates.
//   - POST /access/attempts: the unauthenticated endpoint door devices call to
//     evaluate a credential. Denials are decisions, not errors.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
