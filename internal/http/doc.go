// Package http provides HTTP handlers and middleware for the room booking API.
//
// The router exposes the following endpoints:
//   - POST /rooms, GET /rooms: room catalog endpoints exchanging the `roomDTO`
//     payload defined in room_handler.go. Listing accepts `minCapacity` and
//     `amenity` query filters.
//   - POST /bookings: creates a confirmed booking, returning 201 with the
//     `bookingDTO` payload or a tagged error (400 invalid input, 404 unknown
//     room, 409 slot conflict). An optional `Idempotency-Key` header gives the
//     request at-most-once semantics: retries replay the first outcome
//     verbatim, and a concurrent duplicate gets 409 "Request in progress".
//   - GET /bookings: pages bookings with `roomId`, `from`, `to`, `limit`, and
//     `offset` query parameters, newest start first.
//   - POST /bookings/{id}/cancel: cancels a booking outside the cutoff window.
//     Repeating the cancel is a no-op returning the stored state.
//   - GET /reports/room-utilization: reports business-window utilization per
//     room between the required `from` and `to` parameters.
//   - GET /healthz: storage liveness probe.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
