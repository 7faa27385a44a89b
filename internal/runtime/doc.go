// Package runtime implements the dialogue state machine.
//
// The Machine is pure: Start and Advance take a domain.Session value and return a new one
// without touching the input, so every transition can be tested without timers or I/O.
// Orchestration (acknowledgment delay, dispatch, message log) lives in the root package.
package runtime
