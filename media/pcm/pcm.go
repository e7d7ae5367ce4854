// Package pcm implements the PCM Audio Stream: a background ffmpeg decode
// pipeline feeding a bounded FIFO that a single reader drains, per spec
// §4.7. ffmpeg does the actual demux/decode/resample; this package owns the
// backpressure, cancellation and single-pending-reader contract around it.
package pcm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ytget/ytdlpp/errs"
	"github.com/ytget/ytdlpp/internal/logger"
)

// SampleFormat names the packed PCM sample layout, mapped to ffmpeg's -f
// raw-audio demuxer names.
type SampleFormat string

const (
	SampleFormatS16LE SampleFormat = "s16le"
	SampleFormatS32LE SampleFormat = "s32le"
	SampleFormatF32LE SampleFormat = "f32le"
)

// Options configures the decoder's output format.
type Options struct {
	SampleRate int
	Channels   int
	Format     SampleFormat
	// QueueDepth bounds the number of pending chunks the producer may get
	// ahead of the reader by. Defaults to 32.
	QueueDepth int
	// ChunkBytes is the size of each read the decoder goroutine issues
	// against ffmpeg's stdout pipe. Defaults to 32KiB.
	ChunkBytes int
}

// ErrCancelled is returned by Read/ReadAlloc once Cancel has been called.
var ErrCancelled = errors.New("pcm: stream cancelled")

// Stream is an open decode session. One background goroutine owns the
// ffmpeg subprocess and its stdout pipe for the stream's lifetime.
type Stream struct {
	opts Options

	chunks  chan []byte
	errc    chan error
	ctxDone <-chan struct{}
	cancel  context.CancelFunc
	busy    atomic.Bool
	done    atomic.Bool
	pending []byte // leftover bytes from a chunk partially consumed by Read
}

// Open starts the background decoder for url and returns a Stream ready to
// be read from. The decoder goroutine runs until EOF, an error, or Cancel.
func Open(ctx context.Context, url string, opts Options) (*Stream, error) {
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 32
	}
	if opts.ChunkBytes <= 0 {
		opts.ChunkBytes = 32 * 1024
	}
	if opts.Format == "" {
		opts.Format = SampleFormatS16LE
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		opts:    opts,
		chunks:  make(chan []byte, opts.QueueDepth),
		errc:    make(chan error, 1),
		ctxDone: ctx.Done(),
		cancel:  cancel,
	}

	pr, pw := io.Pipe()
	kwargs := ffmpeg.KwArgs{
		"vn":       "",
		"f":        string(opts.Format),
		"ar":       fmt.Sprint(opts.SampleRate),
		"ac":       fmt.Sprint(opts.Channels),
		"loglevel": "error",
	}

	go s.runFFmpeg(ctx, url, kwargs, pw)
	go s.pump(ctx, pr)

	return s, nil
}

func (s *Stream) runFFmpeg(ctx context.Context, url string, kwargs ffmpeg.KwArgs, pw *io.PipeWriter) {
	log := logger.WithComponent(logger.ComponentPCM)

	cmd := ffmpeg.Input(url).
		Output("pipe:1", kwargs).
		WithOutput(pw).
		Silent(true).
		Compile()
	err := cmd.Start()
	if err != nil {
		_ = pw.CloseWithError(err)
		log.Warn().Err(err).Str("url", url).Msg("pcm decode pipeline failed to start")
		return
	}

	killed := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = cmd.Process.Kill()
		case <-killed:
		}
	}()

	waitErr := cmd.Wait()
	close(killed)
	_ = pw.CloseWithError(waitErr)
	if waitErr != nil && ctx.Err() == nil {
		log.Warn().Err(waitErr).Str("url", url).Msg("pcm decode pipeline exited with error")
	}
}

// pump reads ffmpeg's raw PCM stdout in fixed-size chunks and pushes them
// onto the bounded channel; a full channel blocks this goroutine, which is
// the FIFO's backpressure.
func (s *Stream) pump(ctx context.Context, r io.Reader) {
	defer close(s.chunks)
	buf := make([]byte, s.opts.ChunkBytes)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				select {
				case s.errc <- errs.Wrap(errs.KindRequestFailed, "pcm decode read failed", err):
				default:
				}
			}
			return
		}
	}
}

// Read copies min(len(buf), next chunk) bytes into buf, per spec §4.7.
// Returns 0, nil at EOF. At most one Read/ReadAlloc may be pending at a
// time; concurrent calls are undefined.
func (s *Stream) Read(buf []byte) (int, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return 0, errors.New("pcm: a read is already pending")
	}
	defer s.busy.Store(false)

	if len(s.pending) > 0 {
		n := copy(buf, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}
	if s.done.Load() {
		return 0, nil
	}

	select {
	case chunk, ok := <-s.chunks:
		if !ok {
			s.done.Store(true)
			select {
			case err := <-s.errc:
				return 0, err
			default:
				return 0, nil
			}
		}
		n := copy(buf, chunk)
		if n < len(chunk) {
			s.pending = chunk[n:]
		}
		return n, nil
	case <-s.ctxDone:
		return 0, ErrCancelled
	}
}

// ReadAlloc returns the next chunk as an owned buffer, empty at EOF.
func (s *Stream) ReadAlloc() ([]byte, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, errors.New("pcm: a read is already pending")
	}
	defer s.busy.Store(false)

	if len(s.pending) > 0 {
		out := s.pending
		s.pending = nil
		return out, nil
	}
	if s.done.Load() {
		return nil, nil
	}

	select {
	case chunk, ok := <-s.chunks:
		if !ok {
			s.done.Store(true)
			select {
			case err := <-s.errc:
				return nil, err
			default:
				return nil, nil
			}
		}
		return chunk, nil
	case <-s.ctxDone:
		return nil, ErrCancelled
	}
}

// Cancel stops the decoder promptly and completes any pending reader with
// ErrCancelled. Safe to call more than once.
func (s *Stream) Cancel() {
	s.cancel()
}
