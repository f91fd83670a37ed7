package bridge

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Phase is the segmenter's position within the CLI output.
type Phase int

const (
	// PhasePreamble covers banner and setup output before the answer opens.
	PhasePreamble Phase = iota
	// PhaseAnswer covers the model's answer; its tokens are forwarded.
	PhaseAnswer
	// PhaseTrailer covers statistics printed after the answer. It is terminal.
	PhaseTrailer
)

func (p Phase) String() string {
	switch p {
	case PhasePreamble:
		return "preamble"
	case PhaseAnswer:
		return "answer"
	case PhaseTrailer:
		return "trailer"
	}
	return "unknown"
}

// closeMarker ends the answer region; the CLI prints decode statistics after it.
const closeMarker = "decode :"

// Segmenter extracts answer tokens from the CLI's output stream. The answer
// opens once more than one quote marker has been seen: a run of k>=2 double
// quotes counts k/3 + k/2 markers, so `"""` counts once and `""` once.
// The result does not depend on how the stream is split into chunks.
type Segmenter struct {
	phase     Phase
	markers   int
	pending   string
	skipBreak bool
}

func NewSegmenter() *Segmenter { return &Segmenter{} }

// Phase returns the current phase.
func (s *Segmenter) Phase() Phase { return s.phase }

// Feed consumes the next chunk of output and returns the tokens that are now
// complete. Text that could still grow into a longer token or into the close
// marker is held until the next Feed or Flush.
func (s *Segmenter) Feed(chunk string) []string {
	if s.phase == PhaseTrailer {
		return nil
	}
	s.pending += chunk
	if s.phase == PhasePreamble {
		s.scanPreamble()
	}
	if s.phase == PhaseAnswer {
		return s.scanAnswer(false)
	}
	return nil
}

// Flush is called at end of stream and returns whatever answer text is left.
func (s *Segmenter) Flush() []string {
	var out []string
	if s.phase == PhaseAnswer {
		out = s.scanAnswer(true)
	}
	s.pending = ""
	return out
}

func (s *Segmenter) scanPreamble() {
	i := 0
	for {
		j := strings.IndexByte(s.pending[i:], '"')
		if j < 0 {
			s.pending = ""
			return
		}
		start := i + j
		end := start
		for end < len(s.pending) && s.pending[end] == '"' {
			end++
		}
		if end == len(s.pending) {
			// the run may continue in the next chunk
			s.pending = s.pending[start:]
			return
		}
		if k := end - start; k >= 2 {
			s.markers += k/3 + k/2
			if s.markers > 1 {
				s.phase = PhaseAnswer
				s.pending = s.pending[end:]
				s.skipBreak = true
				return
			}
		}
		i = end
	}
}

func (s *Segmenter) scanAnswer(final bool) []string {
	if s.skipBreak {
		switch {
		case strings.HasPrefix(s.pending, "\r\n"):
			s.pending = s.pending[2:]
		case strings.HasPrefix(s.pending, "\n"):
			s.pending = s.pending[1:]
		case s.pending == "" || (s.pending == "\r" && !final):
			return nil
		}
		s.skipBreak = false
	}

	if idx := strings.Index(s.pending, closeMarker); idx >= 0 {
		text := s.pending[:idx]
		s.pending = ""
		s.phase = PhaseTrailer
		return Tokenize(text)
	}
	if final {
		text := s.pending
		s.pending = ""
		return Tokenize(text)
	}

	safe := len(s.pending) - markerPrefixLen(s.pending)
	cut := 0
	if i := strings.LastIndexFunc(s.pending[:safe], unicode.IsSpace); i >= 0 {
		_, size := utf8.DecodeRuneInString(s.pending[i:])
		cut = i + size
	}
	text := s.pending[:cut]
	s.pending = s.pending[cut:]
	return Tokenize(text)
}

// markerPrefixLen returns the length of the longest suffix of s that is a
// proper prefix of the close marker.
func markerPrefixLen(s string) int {
	n := len(closeMarker) - 1
	if len(s) < n {
		n = len(s)
	}
	for ; n > 0; n-- {
		if strings.HasSuffix(s, closeMarker[:n]) {
			return n
		}
	}
	return 0
}

// Tokenize splits text into maximal runs of non-whitespace and single
// whitespace characters, in order. Joining the result yields text.
func Tokenize(text string) []string {
	var out []string
	start := -1
	for i, r := range text {
		if !unicode.IsSpace(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, text[start:i])
			start = -1
		}
		out = append(out, text[i:i+utf8.RuneLen(r)])
	}
	if start >= 0 {
		out = append(out, text[start:])
	}
	return out
}
