// Package files provides file discovery and storage helpers for the pipeline.
//
// Discovery lists stage inputs filtered by extension, always in numeric
// filename order: "sample2.txt" sorts before "sample10.txt", and names
// without digits sort after every name that has them.
//
// Manager performs writes. WriteFileAtomic stages data in a temporary file
// in the destination directory and renames it into place.
//
// Example usage:
//
//	discovery := files.NewDiscovery(paths.Root)
//	raw, err := discovery.FindByExtensions(paths.RawDir, ".txt")
//
//	manager := files.NewManager(logger)
//	err = manager.WriteFileAtomic(paths.MatrixCSV, data)
package files
