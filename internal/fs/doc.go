// Package fs abstracts the file operations of writers for fault injection.
//
// Production code uses fs.Default, which is [LocalFS]. Tests wrap it in a
// [FaultyFS] to make writes, syncs, closes or renames fail:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".mseed", fs.Fault{FailAfterBytes: 1024})
package fs
