// Package crawler implements the frontier crawl over chess.com players: the
// resilient fetcher, the entity resolver that turns a username into a player
// and its games, and the engine that repeatedly selects the frontier from the
// relational store and persists what it resolves.
package crawler
