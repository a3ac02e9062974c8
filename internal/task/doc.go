// Package task manages background job queuing, processing, and lifecycle.
// Generation jobs are persisted before they are queued so that a restart can
// recover them, and a fixed pool of workers executes them off the request path.
package task
