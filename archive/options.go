package archive

import (
	"github.com/hupe1980/mseed"
	"github.com/hupe1980/mseed/internal/resource"
)

type options struct {
	prefix      string
	compression Compression
	pack        mseed.PackOptions
	logger      *mseed.Logger
	ioLimit     int64
	memLimit    int64
	cacheBytes  int64
	workers     int
}

// Option configures a Writer or Reader.
type Option func(*options)

// WithPrefix places all volumes below prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithCompression sets the compression of written volumes.
// Readers detect the compression from the volume name.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithPackOptions sets how a Writer packs records. The default flushes all
// buffered samples and leaves the TraceList unchanged.
func WithPackOptions(p mseed.PackOptions) Option {
	return func(o *options) {
		o.pack = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *mseed.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithIOLimit caps store traffic in bytes per second. Zero is unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithConcurrency sets how many volumes are transferred at once. Default 4.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithCache keeps up to bytes of decompressed volumes in memory so that
// repeated reads of a volume skip the store. Zero disables the cache.
func WithCache(bytes int64) Option {
	return func(o *options) {
		o.cacheBytes = bytes
	}
}

// WithMemoryLimit caps the memory held by the volume cache. Zero is
// unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memLimit = bytes
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		pack:    mseed.PackOptions{FlushData: true},
		logger:  mseed.NoopLogger(),
		workers: 4,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

func (o *options) budget() *resource.Budget {
	return resource.New(resource.Config{
		MemoryLimitBytes:   o.memLimit,
		MaxWorkers:         int64(o.workers),
		IOLimitBytesPerSec: o.ioLimit,
	})
}
