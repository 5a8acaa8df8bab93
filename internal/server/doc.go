// Package server exposes the scraper as an HTTP JSON API built on gin.
//
// Routes:
//
//	GET  /health
//	GET  /metrics
//	GET  /api/v1/events/search?work_id=N | ?q=TERM
//	POST /api/v1/events/search   {"work_id": N} | {"search_term": "..."}
//	GET  /api/v1/events/get_operas?q=X
//	GET  /api/v1/events/detail?url=ABSOLUTE_URL
//
// Errors are reported as {"detail": "..."} with status 400 for rejected
// input and 500 when the source site could not be fetched.
package server
