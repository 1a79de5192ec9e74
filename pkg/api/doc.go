// Package api is the HTTP client for the CampusEats backend.
//
// The client attaches the current bearer token to every request, decodes
// the backend's uniform response envelope ({success, message, data, error})
// so callers always receive the normalized payload, and enforces the
// cross-cutting 401 contract: any unauthorized response fires the
// configured hook exactly once per session occurrence before the error is
// propagated, so an expired token tears the session down no matter which
// endpoint noticed it first.
package api
