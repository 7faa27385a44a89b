/*
Package ports defines the driven ports (interfaces) of the Concierge conversation engine.

These interfaces decouple the core dialogue logic from external implementations, allowing
the engine to work against the real marketplace backends, caches and archives or against
in-memory fakes in tests.

# Key Interfaces

  - Dispatcher: Issues the remote query of a domain and its free-text follow-ups.
  - OptionSource: Yields the option labels of a guided question, statically or remotely.
  - CategoryCache: Shares the vendor category list between replicas.
  - DistributedLocker: Serializes category refreshes across replicas.
  - Archive: Records every dispatch for later inspection.
*/
package ports
