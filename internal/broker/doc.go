// Package broker implements the in-memory publish/subscribe core hosted
// over WebSocket connections.
//
// One Broker owns all shared state: the session registry, the topic
// subscription index (both directions) and the connection table, guarded by
// a single RW mutex. Per-connection write goroutines serialize outbound
// frames so that fan-out never blocks on a slow client. The Supervisor runs
// the periodic heartbeat and dead-connection sweep against the same state.
package broker
