package api

import (
	"errors"
	"fmt"
	"net/http"
)

// handleSSE holds open a Server-Sent Events stream for the authenticated
// rider. The broker pushes teammate ride notifications into the client's
// channel; this handler just relays them until the rider disconnects.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", s.config.ParsedFrontendURL.String())

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.errorJSON(w, errors.New("streaming unsupported"), http.StatusInternalServerError)
		return
	}

	clientChan := s.broker.AddClient(userID)
	defer s.broker.RemoveClient(userID)

	for {
		select {
		case message, open := <-clientChan:
			if !open {
				// The broker closed the channel, likely because a newer
				// connection for the same rider replaced this one.
				return
			}
			// SSE wire format: "data: {...}\n\n".
			fmt.Fprintf(w, "data: %s\n\n", message)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
