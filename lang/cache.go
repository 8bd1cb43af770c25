package lang

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

// cacheEntry holds the result of parsing one source. The parse runs at
// most once per entry no matter how many goroutines request it.
type cacheEntry struct {
	once   sync.Once
	source string
	tmpl   *Template
	err    error
}

// ParseReader reads a template from r and parses it. The input is read
// through an asynchronous read-ahead buffer.
func (e *Engine) ParseReader(ctx context.Context, r io.Reader) (*Template, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).
			With(slog.String("source", "reader"))
	}

	e.logger.TraceContext(ctx, "read input",
		slog.Int("source_bytes", len(data)),
		slog.Bool("read_ahead", true))

	return e.Parse(ctx, string(data))
}

// parseCached parses source once per distinct source text. Entries are
// keyed by the xxh3 hash of the source. A hash collision falls back to an
// uncached parse. Parse errors are cached along with templates.
func (e *Engine) parseCached(ctx context.Context, source string) (*Template, error) {
	hash := xxh3.HashString(source)

	value, hit := e.cache.LoadOrStore(hash, new(cacheEntry))

	entry, ok := value.(*cacheEntry)
	if !ok {
		return e.parse(ctx, source)
	}

	e.logger.TraceContext(ctx, "cache lookup",
		slog.String("source_hash", strconv.FormatUint(hash, 16)),
		slog.Bool("cache_hit", hit))

	entry.once.Do(func() {
		entry.source = source
		entry.tmpl, entry.err = e.parse(ctx, source)
	})

	if entry.source != source {
		e.logger.TraceContext(ctx, "cache collision",
			slog.String("source_hash", strconv.FormatUint(hash, 16)))

		return e.parse(ctx, source)
	}

	return entry.tmpl, entry.err
}

// ClearCache removes every template from the engine's parse cache.
func (e *Engine) ClearCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}
