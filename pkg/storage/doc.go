/*
Package storage provides the pluggable storage abstraction for AirSense
sensor data.

# Store Interface

AirSense uses an interface-based design to support multiple durable
backends:
  - memory: In-memory storage for testing and ephemeral workloads
  - badger: BadgerDB (LSM tree + Snappy compression) for self-hosted deployments
  - sqlite: SQLite for deployments that want plain SQL on disk

All backends implement the Store interface and persist two collections:
raw readings (append-only) and hourly aggregates (exactly one record
per date+hour bucket).

# Why Pluggable Storage?

Different use cases need different backends:

  - Development: Memory backend (fast, no disk I/O)
  - Self-hosted: BadgerDB (persistent, compressed, fast writes)
  - SQL tooling: SQLite (inspectable with standard tools)
  - Testing: Memory backend (no cleanup, fast teardown)

By abstracting storage, you can switch backends without changing
application code.

# Usage Example

	import (
	    "github.com/nesarahmed/airsense/pkg/storage/badger"
	)

	store, err := badger.New(badger.Config{Path: "./data"})
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()
*/
package storage
