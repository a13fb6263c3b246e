package mesh

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/registry"
)

// CaptainHandlers builds the Captain-side HTTP mux: /mesh/register and
// /mesh/heartbeat. It serves no /mesh/broadcast route; that receiver is
// on the Crew side (CrewHandlers). Each endpoint is token-gated via tok.
func CaptainHandlers(reg *Registry, tok Tokenizer, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/mesh/register", func(w http.ResponseWriter, r *http.Request) {
		if !checkToken(w, r, tok) {
			return
		}
		var body registerBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
		if err := reg.RegisterNode(body.Name, body.Endpoint, body.Capabilities); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if log != nil {
			log.Info("mesh: node registered", "name", body.Name, "endpoint", body.Endpoint, "capabilities", len(body.Capabilities))
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/mesh/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		if !checkToken(w, r, tok) {
			return
		}
		var body heartbeatBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
		if err := reg.ProcessHeartbeat(body.Name); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

// CrewHandlers builds the Crew-side HTTP mux: the single /node/exec
// endpoint the Captain invokes, plus /mesh/broadcast receiving fire-and-
// forget Captain messages.
func CrewHandlers(dispatcher *registry.Dispatcher, tok Tokenizer, log *slog.Logger, regionSize int) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/node/exec", func(w http.ResponseWriter, r *http.Request) {
		if !checkToken(w, r, tok) {
			return
		}
		var body execRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}

		rg := region.New(regionSize)
		defer rg.Destroy()

		out, err := dispatcher.Dispatch(r.Context(), body.Tool, []byte(body.Args), rg)
		if err != nil {
			if log != nil {
				log.Warn("mesh: node exec failed", "tool", body.Tool, "error", err)
			}
			_ = json.NewEncoder(w).Encode(execResponseBody{Output: ""})
			return
		}
		_ = json.NewEncoder(w).Encode(execResponseBody{Output: string(out)})
	})

	mux.HandleFunc("/mesh/broadcast", func(w http.ResponseWriter, r *http.Request) {
		if !checkToken(w, r, tok) {
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if log != nil {
			log.Info("mesh: broadcast received", "message", body["message"])
		}
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func checkToken(w http.ResponseWriter, r *http.Request, tok Tokenizer) bool {
	if tok == nil {
		return true
	}
	token := r.Header.Get("X-Mesh-Token")
	if !tok.Validate(token) {
		http.Error(w, "invalid mesh token", http.StatusUnauthorized)
		return false
	}
	return true
}
