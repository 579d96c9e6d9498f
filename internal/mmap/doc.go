// Package mmap maps record files read-only into memory.
//
// Record files are scanned front to back and then referenced by byte range for
// index-only segments, so the whole file is mapped once and shared:
//
//	m, err := mmap.Open("day.mseed")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// On platforms without mmap support the file is read into memory instead.
package mmap
