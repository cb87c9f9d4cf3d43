package blob

import "github.com/nimbusfs/azfs/internal/fsys"

// rangeFetcher retrieves object bytes in [start, end). Implementations clamp
// to the object size; a fully out-of-range request yields an empty slice.
type rangeFetcher func(start, end int64) ([]byte, error)

// readCache serves range reads, optionally holding bytes beyond the request
// to absorb the next one.
type readCache interface {
	fetch(start, end int64) ([]byte, error)
}

func newReadCache(policy fsys.CachePolicy, src rangeFetcher, size, blocksize int64) readCache {
	switch policy {
	case fsys.CacheNone:
		return &noCache{src: src, size: size}
	case fsys.CacheBytes:
		return &bytesCache{src: src, size: size}
	case fsys.CacheBlock:
		return &blockCache{src: src, size: size, blocksize: blocksize}
	default:
		return &readaheadCache{src: src, size: size, blocksize: blocksize}
	}
}

// noCache forwards every request to the store.
type noCache struct {
	src  rangeFetcher
	size int64
}

func (c *noCache) fetch(start, end int64) ([]byte, error) {
	start, end = clampRange(start, end, c.size)
	if start >= end {
		return nil, nil
	}
	return c.src(start, end)
}

// readaheadCache fetches one extra block past the requested range and serves
// subsequent reads that fall inside the window locally.
type readaheadCache struct {
	src       rangeFetcher
	size      int64
	blocksize int64

	start int64
	data  []byte
}

func (c *readaheadCache) fetch(start, end int64) ([]byte, error) {
	start, end = clampRange(start, end, c.size)
	if start >= end {
		return nil, nil
	}
	if c.data == nil || start < c.start || end > c.start+int64(len(c.data)) {
		fetchEnd := end + c.blocksize
		if fetchEnd > c.size {
			fetchEnd = c.size
		}
		data, err := c.src(start, fetchEnd)
		if err != nil {
			return nil, err
		}
		c.start, c.data = start, data
	}
	lo := start - c.start
	hi := end - c.start
	return c.data[lo:hi], nil
}

// bytesCache materializes the whole object on first access.
type bytesCache struct {
	src  rangeFetcher
	size int64
	data []byte
}

func (c *bytesCache) fetch(start, end int64) ([]byte, error) {
	if c.data == nil {
		data, err := c.src(0, c.size)
		if err != nil {
			return nil, err
		}
		if data == nil {
			data = []byte{}
		}
		c.data = data
	}
	start, end = clampRange(start, end, int64(len(c.data)))
	if start >= end {
		return nil, nil
	}
	return c.data[start:end], nil
}

// blockCache holds the most recent block-aligned window covering a request.
type blockCache struct {
	src       rangeFetcher
	size      int64
	blocksize int64

	start int64
	data  []byte
}

func (c *blockCache) fetch(start, end int64) ([]byte, error) {
	start, end = clampRange(start, end, c.size)
	if start >= end {
		return nil, nil
	}
	if c.data == nil || start < c.start || end > c.start+int64(len(c.data)) {
		alignedStart := (start / c.blocksize) * c.blocksize
		alignedEnd := ((end + c.blocksize - 1) / c.blocksize) * c.blocksize
		if alignedEnd > c.size {
			alignedEnd = c.size
		}
		data, err := c.src(alignedStart, alignedEnd)
		if err != nil {
			return nil, err
		}
		c.start, c.data = alignedStart, data
	}
	lo := start - c.start
	hi := end - c.start
	return c.data[lo:hi], nil
}

func clampRange(start, end, size int64) (int64, int64) {
	if start < 0 {
		start = 0
	}
	if end > size {
		end = size
	}
	return start, end
}
