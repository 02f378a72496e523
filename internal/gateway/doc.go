// Package gateway throttles and retries every call to the sequential-catalog
// API. A composite set of rate windows gates each call, a semaphore bounds the
// number of requests in flight, and failures are classified into the retry
// taxonomy the resolution engine depends on: rate limits retry forever,
// transient failures retry a bounded number of times, not-found propagates
// immediately.
package gateway
