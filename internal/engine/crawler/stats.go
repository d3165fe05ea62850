package crawler

import "sync/atomic"

// Stats mirrors the crawl counters for observers running on other
// goroutines, such as the progress view. The crawl loop is the only writer.
type Stats struct {
	Target     int
	Candidates atomic.Int64
	Processed  atomic.Int64
	Accepted   atomic.Int64
	Duplicates atomic.Int64
	Failures   atomic.Int64
	Invalid    atomic.Int64
	Filtered   atomic.Int64
	Stagnation atomic.Int64
}
