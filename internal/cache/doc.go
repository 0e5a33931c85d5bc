// Package cache is the SDK's local key/value cache.
//
// Entries are stored in the cache_entries SQLite table so a restarted
// daemon can serve the last known device list while offline. A ttlcache
// in front of the table keeps hot entries in memory.
//
// Keys are the session name followed by a fixed prefix per entry type:
//
//	<session>com.aylanetworks.aylasdk.devices
//	<session>com.aylanetworks.aylasdk.properties<dsn>
//	<session>com.aylanetworks.aylasdk.lanconfig<dsn>
//	<session>com.aylanetworks.aylasdk.setup
//	<session>com.aylanetworks.aylasdk.group
//	<session>com.aylanetworks.aylasdk.node<dsn>
//
// LAN configuration entries hold device keys and are encrypted with
// AES-128-CBC under a key derived from the current auth header, so they
// become unreadable once the session that wrote them signs out.
package cache
