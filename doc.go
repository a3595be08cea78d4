// Package cache provides a bounded in-memory cache of reference counted values.
// Focused on safe sharing of expensive resources between concurrent holders.
//
// Features:
//
//   - Values are stored and returned as ref.Handle, a value is released only after the cache and every holder closed their handles.
//   - Entries checked out with Get are never evicted, cache may temporarily exceed its limits instead.
//   - Capacity by accounted bytes and entries count, optional limits for idle entries.
//   - Oldest inserted idle entries are evicted first.
//   - Trim on memory pressure with configurable strategy, heap in use watcher and Trimmer registry.
//   - Capacity params can be derived from host memory and are re-queried periodically.
//   - Sharded cache to reduce lock contention.
//   - Builds are locked per key with Loader to eliminate racy updates.
//   - Allows logging, stats collection.
//   - Propagates context to allow better control of application components.
package cache
