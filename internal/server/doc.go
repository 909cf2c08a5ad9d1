// Package server exposes workflow transitions over HTTP.
//
// # Routes
//
//	PUT    /workflow-requests/{storeId}   create     201 | 400 | 409 | 403
//	PUT    /workflow-update/{storeId}     update     200 | 400 | 409 | 403
//	DELETE /workflow-requests/{storeId}   teardown   204 | 404 | 409
//	GET    /workflow-requests/{storeId}   read one   200 | 404
//	GET    /workflow-requests             read all   200
//	GET    /health                        liveness   200 "healthy"
//	GET    /workflow-request.schema.json  request body schema
//	GET    /metrics                       Prometheus metrics (when enabled)
//
// Request bodies are validated against the workflow schema before the
// transition starts. A body may also arrive as a JSON string holding the
// encoded object.
//
// Errors are returned as plain text; the status code is derived from the
// error kind with api.HTTPStatus.
package server
