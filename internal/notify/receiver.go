package notify

import (
	"io"
	"net/http"
)

// Receiver is the requester side of notifications. It serves POST on the
// notification path and hands every decoded message to its callback.
type Receiver struct {
	onMessage func(remote string, msg Message)
}

// NewReceiver creates a receiver that calls onMessage for every notification.
func NewReceiver(onMessage func(remote string, msg Message)) *Receiver {
	return &Receiver{onMessage: onMessage}
}

// Handler returns the mux serving path and a /health endpoint.
func (r *Receiver) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+path, r.handleResult)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("healthy\n"))
	})
	return mux
}

func (r *Receiver) handleResult(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, 64<<10))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	msg, err := DecodeMessage(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.onMessage != nil {
		r.onMessage(req.RemoteAddr, msg)
	}
	w.WriteHeader(http.StatusOK)
}
