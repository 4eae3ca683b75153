package process

import (
	"errors"
	"io"
	"log/slog"

	"github.com/ytget/ytdl-gui/internal/model"
)

// runPump drains one output stream into buf until end of stream.
//
// Undecodable lines are logged and skipped. Any other read error is logged
// and ends this pump only; the sibling pump and exit observation carry on.
// The stream is closed when the pump returns.
func runPump(stream io.ReadCloser, source model.Source, buf *Buffer, dec *decoder, log *slog.Logger) {
	defer stream.Close()

	lr := &LineReader{r: stream, dec: dec}
	count := 0
	for line, err := range lr.Lines() {
		if err != nil {
			var decErr *DecodeError
			if errors.As(err, &decErr) {
				log.Warn("skipping undecodable line", "source", source, "error", decErr)
				continue
			}
			log.Error("stream read failed", "source", source, "lines", count, "error", err)
			return
		}

		buf.Push(model.OutputLine{Text: line, Source: source})
		count++
	}

	if tail := lr.Pending(); len(tail) > 0 {
		log.Debug("dropping unterminated output", "source", source, "bytes", len(tail), "tail", string(tail))
	}
	log.Debug("stream closed", "source", source, "lines", count)
}
