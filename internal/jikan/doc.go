// Package jikan implements the read-only client for the sequential catalog's
// REST API: anime search, entry details, episode pages and declared relations.
// Throttling and retries live in the gateway package; this client performs
// exactly one HTTP request per call.
package jikan
