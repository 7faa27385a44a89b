/*
Package session keeps the live conversations of a server process.

Each conversation is owned by exactly one Manager entry, keyed by a UUIDv7 session id.
Sessions live in memory only: they are discarded when closed, when idle for too long, or
when the process exits.
*/
package session
