// Package api handles incoming HTTP requests: it decodes and validates
// request bodies, calls the application services and maps their results and
// errors to JSON responses. Routes are assembled in cmd/server.
package api
