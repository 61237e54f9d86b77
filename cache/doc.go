// Package cache stores encoded analysis records keyed by upload content.
//
// Keys are derived from the full SHA-256 digest of the uploaded bytes plus a
// namespace and a result variant. Three backends are provided: an in-process
// MemoryCache, a RedisCache for shared deployments, and a BadgerCache for a
// single node that wants results to survive restarts.
package cache
