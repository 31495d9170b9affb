// Package checkpoint keeps a per-profile history of finished downloads so
// that later runs skip videos that were already saved.
//
// Files live in the platform data directory:
//   - Linux: $XDG_DATA_HOME/dyscraper/checkpoints/ (or ~/.local/share/...)
//   - macOS: ~/Library/Application Support/dyscraper/checkpoints/
//   - Windows: %APPDATA%/dyscraper/checkpoints/
//
// The history is keyed by candidate (aweme id, or URL without its query).
// It does not resume half-written files; those are discarded by storage.
package checkpoint
