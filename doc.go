// Package mseed groups miniSEED data into per-channel trace segments, merges
// new records and sample runs into them, and packs buffered samples back into
// records.
//
// # Trace lists
//
// A TraceList maps each SourceID to a TraceID, which holds that channel's
// time-ordered, non-overlapping segments. Records read from a buffer, file or
// stream are merged into the list; contiguous data (within a configurable
// time and sample-rate tolerance) extends an existing segment:
//
//	tl := mseed.New()
//	if _, err := tl.ReadFile("example.mseed", mseed.ReadOptions{UnpackData: true}); err != nil {
//	    return err
//	}
//	for tid := range tl.All() {
//	    for _, seg := range tid.Segments() {
//	        fmt.Println(tid.SourceID(), seg.StartTime(), seg.EndTime(), seg.SampleCount())
//	    }
//	}
//
// With ReadOptions.RecordList only headers are decoded and each segment keeps
// a list of record references; Materialize decodes them on demand.
//
// # Rolling buffers
//
// Samples added with AddData are packed into records by Generate or Pack.
// With PackOptions.RemovePacked, emitted samples are removed from the list as
// each record is produced, so a caller can feed data continuously and pack
// only full records, flushing the remainder at the end:
//
//	for chunk := range chunks {
//	    tl.AddData(sid, chunk, 40, start, 1)
//	    tl.Pack(write, mseed.PackOptions{RecordLength: 512, RemovePacked: true})
//	}
//	tl.Pack(write, mseed.PackOptions{RecordLength: 512, RemovePacked: true, FlushData: true})
//
// # Trimming
//
// TrimRecord cuts a single record to a time window and re-encodes the
// surviving samples. WindowStream applies it to a stream of records.
//
// A TraceList is not safe for concurrent use. Independent lists may be used
// from separate goroutines; diagnostics are collected per list or per call,
// never globally.
package mseed
