package texture

import (
	"context"
	"fmt"
	"image"
	"sync"

	"go.uber.org/zap"
)

// Request describes one fire-and-forget texture load.
type Request struct {
	Source     *Source
	Params     Params
	Constraint Constraint
	// Done runs on the owner's thread from Drain or Flush. It owns tex on
	// success; tex is nil when err is set.
	Done func(tex *Texture, err error)
}

type result struct {
	req Request
	tex *Texture
	err error
}

// Loader decodes textures on background goroutines and hands completions
// back to a single owner thread.
//
// Load, Drain, Flush, Pending and Close must all be called from the owner's
// thread. Completions arrive in whatever order decodes finish.
type Loader struct {
	fetcher Fetcher
	log     *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	results chan result
	wg      sync.WaitGroup

	pending int
	closed  bool
}

// NewLoader creates a loader that fetches encoded data through f.
func NewLoader(f Fetcher, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		fetcher: f,
		log:     log.Named("texture"),
		ctx:     ctx,
		cancel:  cancel,
		results: make(chan result, 16),
	}
}

// Load starts decoding req.Source. In-memory images are validated against
// req.Constraint immediately and a violation is returned without queuing
// anything; all other failures are reported through req.Done.
func (l *Loader) Load(req Request) error {
	if l.closed {
		return ErrClosed
	}
	if req.Source == nil {
		return fmt.Errorf("%w: nil source", ErrInvalidInput)
	}
	if img := req.Source.Image; img != nil && req.Constraint != nil {
		b := img.Bounds()
		if err := req.Constraint(image.Config{Width: b.Dx(), Height: b.Dy()}); err != nil {
			return err
		}
	}

	l.pending++
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		tex, err := l.decode(req)
		select {
		case l.results <- result{req: req, tex: tex, err: err}:
		case <-l.ctx.Done():
			tex.Dispose()
		}
	}()
	return nil
}

func (l *Loader) decode(req Request) (*Texture, error) {
	src := req.Source
	img := src.Image
	if img == nil {
		data, err := l.fetcher.Fetch(l.ctx, src.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: fetching %s: %v", ErrDecode, src, err)
		}
		if req.Constraint != nil {
			cfg, err := DecodeConfig(data, src.URL)
			if err != nil {
				return nil, err
			}
			if err := req.Constraint(cfg); err != nil {
				return nil, err
			}
		}
		if img, err = Decode(data, src.URL); err != nil {
			return nil, err
		}
	}

	tex := New(img, src.String())
	tex.Params = req.Params
	return tex, nil
}

// Pending returns the number of requests not yet delivered.
func (l *Loader) Pending() int {
	return l.pending
}

// Drain delivers every completion that is ready without blocking and
// returns how many were delivered.
func (l *Loader) Drain() int {
	n := 0
	for {
		select {
		case r := <-l.results:
			l.deliver(r)
			n++
		default:
			return n
		}
	}
}

// Flush blocks until every pending request has been delivered.
func (l *Loader) Flush(ctx context.Context) error {
	for l.pending > 0 {
		select {
		case r := <-l.results:
			l.deliver(r)
		case <-ctx.Done():
			return ctx.Err()
		case <-l.ctx.Done():
			return ErrClosed
		}
	}
	return nil
}

func (l *Loader) deliver(r result) {
	l.pending--
	if l.closed {
		r.tex.Dispose()
		return
	}
	if r.err != nil {
		l.log.Debug("texture load failed", zap.Stringer("source", r.req.Source), zap.Error(r.err))
	}
	if r.req.Done == nil {
		r.tex.Dispose()
		return
	}
	r.req.Done(r.tex, r.err)
}

// Close cancels in-flight loads and disposes anything decoded but not yet
// delivered. Completion callbacks never run after Close.
func (l *Loader) Close() {
	if l.closed {
		return
	}
	l.closed = true
	l.cancel()
	l.wg.Wait()
	for {
		select {
		case r := <-l.results:
			l.pending--
			r.tex.Dispose()
		default:
			l.pending = 0
			return
		}
	}
}
