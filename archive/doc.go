// Package archive stores miniSEED records as day volumes in a BlobStore.
//
// A Writer packs a TraceList and groups the records by SourceID and the UTC
// day they start on. Each group becomes one volume:
//
//	<prefix>/<NET_STA_LOC_B_S_SS>/<YYYY>/<DDD>/<seq>.mseed[.lz4|.zst]
//
// The FDSN: namespace is left out of the directory name. Sequence numbers
// start at 1 and grow by one for every volume written to the same day.
//
// A Reader lists volumes by SourceID and time window and loads them back into
// a TraceList:
//
//	store := blobstore.NewLocalStore("/data/archive")
//	w := archive.NewWriter(store, archive.WithCompression(archive.CompressionZSTD))
//	stats, err := w.Write(ctx, tl)
//
//	r := archive.NewReader(store)
//	vols, err := r.Volumes(ctx, archive.Query{SourceID: sid})
//	_, err = r.Load(ctx, dst, vols, mseed.ReadOptions{UnpackData: true})
//
// A Writer assumes it is the only writer of a day directory.
package archive
