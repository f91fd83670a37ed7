// Package sse writes the OpenAI-style server-sent event frames used by the
// chat completions stream.
package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"mlcshim/pkg/types"
)

const (
	// ChunkID is the id carried by every chunk of a stream.
	ChunkID = "chatcmpl-temp"
	// ChunkObject is the object type of every chunk.
	ChunkObject = "chat.completion.chunk"
	// DoneSentinel is the payload of the final frame of a successful stream.
	DoneSentinel = "[DONE]"
)

// ErrClosed is returned when writing after the terminal frame.
var ErrClosed = errors.New("sse: stream already terminated")

// Encoder writes `data: <payload>\n\n` frames, flushing after each one.
// A stream ends with exactly one terminal frame: [DONE] or an error.
type Encoder struct {
	w      io.Writer
	flush  func()
	model  string
	buf    bytes.Buffer
	frames int
	closed bool
}

// NewEncoder returns an Encoder writing to w. flush may be nil.
func NewEncoder(w io.Writer, flush func(), model string) *Encoder {
	return &Encoder{w: w, flush: flush, model: model}
}

// Token writes one content chunk. A newline token ends up as the two
// characters \n inside the JSON string.
func (e *Encoder) Token(tok string) error {
	return e.writeJSON(types.ChatCompletionChunk{
		ID:     ChunkID,
		Object: ChunkObject,
		Model:  e.model,
		Choices: []types.ChunkChoice{{
			Index: 0,
			Delta: types.ChunkDelta{Content: tok},
		}},
	}, false)
}

// Error writes a terminal {"error": msg} frame.
func (e *Encoder) Error(msg string) error {
	return e.writeJSON(types.StreamError{Error: msg}, true)
}

// Done writes the terminal [DONE] frame.
func (e *Encoder) Done() error {
	return e.writeFrame([]byte(DoneSentinel), true)
}

// Frames returns the number of frames written so far.
func (e *Encoder) Frames() int { return e.frames }

// Closed reports whether a terminal frame has been written.
func (e *Encoder) Closed() bool { return e.closed }

func (e *Encoder) writeJSON(v any, terminal bool) error {
	if e.closed {
		return ErrClosed
	}
	e.buf.Reset()
	enc := json.NewEncoder(&e.buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return e.writeFrame(bytes.TrimSuffix(e.buf.Bytes(), []byte("\n")), terminal)
}

func (e *Encoder) writeFrame(payload []byte, terminal bool) error {
	if e.closed {
		return ErrClosed
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	if terminal {
		e.closed = true
	}
	if _, err := e.w.Write(frame); err != nil {
		return err
	}
	e.frames++
	if e.flush != nil {
		e.flush()
	}
	return nil
}
