package oxifuj

import "github.com/aleksaelezovic/oxifuj/internal/qerror"

// Optimize runs the underlying LSM's compaction (§6.6's `optimize`
// command), collapsing overlapping SSTs so subsequent index scans read
// fewer files. Grounded directly in Badger's own recommended
// maintenance call, the same one the bulk loader's host process would
// run after a large non-atomic load.
func (s *Store) Optimize() error {
	if err := s.storage.DB().Flatten(1); err != nil {
		return qerror.Storage(err, "optimize (flatten) failed")
	}
	return s.storage.Sync()
}
