package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line. Subsystems use it to tag their
// output, e.g. "[smp] ".
type PrefixWriter struct {
	// A writer where all writes get sent to. A nil Sink selects the
	// currently attached kfmt output sink.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	bytesAfterPrefix int
}

// Write forwards p to the sink, injecting the prefix at the start of every
// line. The prefix is not included in the returned byte count.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var (
		sink                 = w.sink()
		written              int
		startIndex, curIndex int
	)

	if w.bytesAfterPrefix == 0 && len(p) != 0 {
		sink.Write(w.Prefix)
	}

	for ; curIndex < len(p); curIndex++ {
		if p[curIndex] != '\n' {
			continue
		}

		n, err := sink.Write(p[startIndex : curIndex+1])
		if curIndex+1 != len(p) {
			sink.Write(w.Prefix)
		}
		written += n
		if err != nil {
			return written, err
		}
		w.bytesAfterPrefix = 0
		startIndex = curIndex + 1
	}

	if startIndex < curIndex {
		n, err := sink.Write(p[startIndex:curIndex])
		written += n
		w.bytesAfterPrefix = n
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

func (w *PrefixWriter) sink() io.Writer {
	if w.Sink != nil {
		return w.Sink
	}
	if outputSink != nil {
		return outputSink
	}
	return &earlyPrintBuffer
}
