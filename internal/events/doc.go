// Package events decouples request handling from background job scheduling.
//
// Services emit a TaskRequestEvent after their database transaction commits;
// a handler registered with the emitter turns the event into a task and
// submits it to the task runner. Neither side imports the other.
package events
