package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"venuebook/internal/metrics"

	"github.com/rs/zerolog"
)

// Loader owns the checkout script for the whole process. The script is
// loaded lazily on the first Acquire and only once; every view holds a Lease
// while it may show an overlay.
type Loader struct {
	source      ScriptSource
	construct   Constructor
	loadTimeout time.Duration
	logger      *zerolog.Logger

	once    sync.Once
	ready   chan struct{}
	loadErr error

	mu   sync.Mutex
	refs int
}

func NewLoader(source ScriptSource, construct Constructor, loadTimeout time.Duration, logger *zerolog.Logger) *Loader {
	if loadTimeout <= 0 {
		loadTimeout = 15 * time.Second
	}
	return &Loader{
		source:      source,
		construct:   construct,
		loadTimeout: loadTimeout,
		logger:      logger,
		ready:       make(chan struct{}),
	}
}

func (l *Loader) start() {
	l.once.Do(func() {
		go l.load()
	})
}

func (l *Loader) load() {
	defer close(l.ready)

	ctx, cancel := context.WithTimeout(context.Background(), l.loadTimeout)
	defer cancel()

	started := time.Now()
	if err := l.source.Load(ctx); err != nil {
		l.loadErr = err
		l.logger.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("checkout script failed to load")
		return
	}
	l.logger.Debug().Dur("elapsed", time.Since(started)).Msg("checkout script loaded")
}

// Ready reports whether the script finished loading successfully. It never
// blocks and never starts the load.
func (l *Loader) Ready() bool {
	select {
	case <-l.ready:
		return l.loadErr == nil
	default:
		return false
	}
}

// Acquire waits for the script and returns a lease. A load failure is
// reported as ErrUnavailable instead of waiting forever.
func (l *Loader) Acquire(ctx context.Context) (*Lease, error) {
	l.start()

	select {
	case <-l.ready:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for script: %v", ErrUnavailable, ctx.Err())
	}
	if l.loadErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, l.loadErr)
	}

	l.mu.Lock()
	l.refs++
	refs := l.refs
	l.mu.Unlock()
	metrics.SetCheckoutLeases(refs)

	return &Lease{loader: l}, nil
}

// Refs returns the number of live leases.
func (l *Loader) Refs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refs
}

func (l *Loader) release() {
	l.mu.Lock()
	if l.refs > 0 {
		l.refs--
	}
	refs := l.refs
	l.mu.Unlock()
	metrics.SetCheckoutLeases(refs)
}

// Lease is one view's hold on the loader. It may have at most one open
// overlay; Release closes it.
type Lease struct {
	loader *Loader

	mu       sync.Mutex
	overlay  Overlay
	released bool
}

// Open constructs and opens an overlay for the options.
func (l *Lease) Open(ctx context.Context, opts Options) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return ErrReleased
	}
	if l.overlay != nil {
		return ErrAlreadyOpen
	}

	overlay, err := l.loader.construct(opts)
	if err != nil {
		return fmt.Errorf("create checkout overlay: %w", err)
	}
	if err := overlay.Open(ctx); err != nil {
		_ = overlay.Close()
		return fmt.Errorf("open checkout overlay: %w", err)
	}
	l.overlay = overlay
	return nil
}

// Close closes the open overlay, if any. The lease stays usable.
func (l *Lease) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *Lease) closeLocked() error {
	if l.overlay == nil {
		return nil
	}
	err := l.overlay.Close()
	l.overlay = nil
	return err
}

// Release closes any open overlay and returns the lease. Safe to call twice.
func (l *Lease) Release() {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	if err := l.closeLocked(); err != nil {
		l.loader.logger.Warn().Err(err).Msg("close checkout overlay on release")
	}
	l.mu.Unlock()

	l.loader.release()
}
