package dedupe

// Option configures the in-memory deduper.
type Option func(*ringDeduper)

// WithMaxSize sets how many ids are remembered. Zero or less means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *ringDeduper) {
		d.maxSize = maxSize
	}
}
