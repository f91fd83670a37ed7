package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"mlcshim/internal/bridge"
	"mlcshim/pkg/types"
)

// modelsHandler godoc
// @Summary      List models
// @Description  Returns the single model served by the configured CLI.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /v1/models [get]
func modelsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModelsResponse{Data: svc.ListModels()})
	}
}

// chatCompletionsHandler godoc
// @Summary      Stream a chat completion
// @Description  Runs the inference CLI on the last message and streams the answer as server-sent events.
// @Description  Each frame is `data: <chunk>`; the stream ends with `data: [DONE]` or a single `{"error": ...}` frame.
// @Tags         chat
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body      types.ChatCompletionRequest  true  "Chat request"
// @Success      200      {object}  types.ChatCompletionChunk
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Router       /v1/chat/completions [post]
func chatCompletionsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeJSONError(w, http.StatusBadRequest, "request body too large")
				return
			}
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		prompt, ok := req.LastContent()
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "messages must not be empty")
			return
		}

		lvl := requestLogLevel(r)
		log := requestLogger(r)
		start := time.Now()

		ctx, cancel := streamContext(r)
		defer cancel()

		release, err := svc.Admit(ctx)
		if err != nil {
			if aborted(r) {
				return
			}
			status := statusFor(err)
			if status == http.StatusTooManyRequests {
				IncrementBackpressure("queue_wait")
			}
			writeJSONError(w, status, err.Error())
			if lvl >= LevelError {
				log.Error().Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("chat rejected")
			}
			return
		}
		defer release()

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
			flush()
		}
		writer := io.Writer(w)
		if lvl >= LevelDebug {
			writer = io.MultiWriter(w, &loggingLineWriter{requestID: middleware.GetReqID(r.Context())})
		}
		if lvl >= LevelInfo {
			log.Info().Int("prompt_len", len(prompt)).Int("messages", len(req.Messages)).Msg("chat start")
		}

		err = svc.StreamChat(ctx, prompt, writer, flush)
		switch {
		case err == nil:
			if lvl >= LevelInfo {
				log.Info().Dur("dur", time.Since(start)).Msg("chat end")
			}
		case aborted(r):
			if lvl >= LevelInfo {
				log.Info().Dur("dur", time.Since(start)).Msg("chat aborted by client")
			}
		case bridge.IsTimeout(err), bridge.IsSpawnFailure(err):
			if lvl >= LevelError {
				log.Error().Dur("dur", time.Since(start)).Err(err).Msg("chat end")
			}
		default:
			if lvl >= LevelError {
				log.Error().Dur("dur", time.Since(start)).Err(err).Msg("chat failed")
			}
		}
	}
}
