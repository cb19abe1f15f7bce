package api

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/the-utkarshjain/Part-of-Speech-Tagging/pipeline"
)

const ProfileParam = "profile"

// ProfileSet tells whether a tagger profile is loaded.
type ProfileSet interface {
	Has(profile string) bool
}

type Request struct {
	Pipeline pipeline.Pipeline
	Profiles ProfileSet

	requests uint64
}

// ProcessData tags the plain text body, one sentence per line.
func (req *Request) ProcessData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	logger := makeRequestLogger(r)

	if r.Method != http.MethodPost {
		logger.Err(nil).Int("status", http.StatusMethodNotAllowed).Msg("Only 'POST' method is allowed here")
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	profile := r.URL.Query().Get(ProfileParam)
	if req.Profiles != nil && !req.Profiles.Has(profile) {
		logger.Err(nil).Int("status", http.StatusNotFound).Msg("Unknown tagger profile")
		http.Error(w, "", http.StatusNotFound)
		return
	}

	msg, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Err(err).Int("status", http.StatusBadRequest).Msg("Could not read request body")
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	request := pipeline.Request{
		Tid:     fmt.Sprintf("api-%d", atomic.AddUint64(&req.requests, 1)),
		Profile: profile,
		Text:    string(msg),
	}
	logger.Info().Str("tid", request.Tid).Msg("Starting pipeline for request from API")
	resp, ok := <-req.Pipeline(request)
	if !ok {
		logger.Error().Int("status", http.StatusInternalServerError).Msg("Pipeline returned no response")
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(resp))
	logger.Info().Int("status", http.StatusOK).Msg("Finished processing request")
}
