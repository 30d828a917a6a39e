// Package store is the record store of one reduction run: a mapping from
// reflection key to the ordered domains (peak.Record) measured for it.
//
// Lifecycle:
//
//	s, _ := store.New(geometry)           // empty
//	s.Accumulate(key, obs)                // quality-gated observations
//	s.Split(eps)                          // omega domains
//	s.Integrate(key, domain, result)      // voxels from the integrator
//	s.SetBankScale / ApplyAbsorption / ApplyExtinction
//	s.SaveFile(path)                      // YAML state, reloadable
//
// A Store is not safe for concurrent use. Parallel integration writes
// independent stores that are folded back with Reconcile in worker order.
package store
