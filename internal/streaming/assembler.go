package streaming

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/stwalsh4118/epgcast/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Assembler plays steps into a client sink, one producer per step
type Assembler struct {
	factory   ProducerFactory
	chunkSize int
	now       func() time.Time
}

// NewAssembler creates an assembler. A non-positive chunkSize uses DefaultChunkSize.
func NewAssembler(factory ProducerFactory, chunkSize int) *Assembler {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Assembler{
		factory:   factory,
		chunkSize: chunkSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Play streams step into sink and reports how it ended. The step's producer
// has always exited by the time Play returns.
//
// A failed write to sink, or cancellation of ctx, terminates the producer and
// yields OutcomeAborted. A producer that cannot start, exits abnormally or
// writes nothing yields OutcomeFailed.
func (a *Assembler) Play(ctx context.Context, step StreamStep, sink io.Writer) StepResult {
	log := logger.Component("assembler").With().
		Str("kind", string(step.Kind)).
		Int("index", step.Index).
		Logger()

	result := StepResult{Started: a.now()}
	finish := func(outcome Outcome, err *StreamError) StepResult {
		result.Outcome = outcome
		result.Err = err
		result.Finished = a.now()
		return result
	}

	if err := ctx.Err(); err != nil {
		return finish(OutcomeAborted, NewStreamError(ErrorTypeClientDisconnected, "Request cancelled before step started", err))
	}

	producer, err := a.factory.ProducerFor(step)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build producer")
		return finish(OutcomeFailed, ClassifyError(err))
	}

	out, err := producer.Start(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start producer")
		if ctx.Err() != nil {
			return finish(OutcomeAborted, NewStreamError(ErrorTypeClientDisconnected, "Request cancelled", err))
		}
		return finish(OutcomeFailed, NewStreamError(ErrorTypeLaunchFailed, "Producer failed to start", err))
	}

	copyDone := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(copyDone)
		n, err := a.copyChunks(sink, out)
		result.Bytes = n
		return err
	})

	// Cancellation is only observed here and at the write boundary
	g.Go(func() error {
		select {
		case <-copyDone:
		case <-gctx.Done():
			if err := producer.Cancel(); err != nil {
				log.Warn().Err(err).Msg("Failed to terminate producer")
			}
		}
		return nil
	})

	copyErr := g.Wait()
	if copyErr != nil {
		if err := producer.Cancel(); err != nil {
			log.Warn().Err(err).Msg("Failed to terminate producer")
		}
	}
	_ = out.Close()
	waitErr := producer.Wait()

	var streamErr *StreamError
	switch {
	case errors.As(copyErr, &streamErr) && streamErr.Type == ErrorTypeClientDisconnected:
		log.Info().Int64("bytes", result.Bytes).Msg("Client disconnected during step")
		return finish(OutcomeAborted, streamErr)
	case ctx.Err() != nil:
		log.Info().Int64("bytes", result.Bytes).Msg("Request cancelled during step")
		return finish(OutcomeAborted, NewStreamError(ErrorTypeClientDisconnected, "Request cancelled", ctx.Err()))
	case copyErr != nil:
		log.Error().Err(copyErr).Msg("Failed reading producer output")
		return finish(OutcomeFailed, ClassifyError(copyErr))
	case waitErr != nil:
		log.Warn().Err(waitErr).Int64("bytes", result.Bytes).Msg("Producer exited abnormally")
		return finish(OutcomeFailed, ClassifyError(waitErr))
	case result.Bytes == 0:
		log.Warn().Msg("Producer exited without output")
		return finish(OutcomeFailed, NewStreamError(ErrorTypeNoOutput, "Producer wrote nothing", ErrNoOutput))
	}

	log.Debug().Int64("bytes", result.Bytes).Msg("Step completed")
	return finish(OutcomeCompleted, nil)
}

// copyChunks copies src to dst in chunkSize reads. A write failure is
// reported as a client disconnect.
func (a *Assembler) copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, a.chunkSize)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, NewStreamError(ErrorTypeClientDisconnected, "Write to client failed", err)
			}
			written += int64(n)
		}
		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, NewStreamError(ErrorTypeTransferFailed, "Read from producer failed", readErr)
		}
	}
}
