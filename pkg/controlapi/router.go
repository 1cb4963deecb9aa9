package controlapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rina-go/rinad/internal/logger"
	"github.com/rina-go/rinad/pkg/controlapi/auth"
	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/ipcp"
)

// LoginRequest authenticates a control session with the operator's
// shared secret, standing in for dittofs's username/password login
// since there is exactly one operator identity here.
type LoginRequest struct {
	Secret  string `json:"secret"`
	Subject string `json:"subject"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRouter builds the chi JSON façade over ops: health (unauthenticated),
// login, and the control-message families behind a session token,
// mirroring dittofs's router.go middleware stack and /health split.
func NewRouter(ops *Ops, authSvc *auth.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"bound_ipcps": ops.Health()})
	})

	r.Post("/api/v1/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var body LoginRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if authSvc == nil || !authSvc.CheckSecret(body.Secret) {
			http.Error(w, "invalid secret", http.StatusUnauthorized)
			return
		}
		subject := body.Subject
		if subject == "" {
			subject = "operator"
		}
		token, expiresAt, err := authSvc.IssueToken(subject)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt})
	})

	r.Group(func(r chi.Router) {
		if authSvc != nil {
			r.Use(auth.RequireSession(authSvc))
		}

		r.Post("/api/v1/dif/{ipcID}/assign", func(w http.ResponseWriter, req *http.Request) {
			ipcID, ok := parseIPCID(w, req)
			if !ok {
				return
			}
			var body struct {
				Name string                        `json:"name"`
				DT   dtconst.DataTransferConstants `json:"dt"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			res := ops.AssignToDIF(ipcID, ipcp.DIFConfig{Name: body.Name, DT: body.DT})
			writeResult(w, res)
		})

		r.Get("/api/v1/flows", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, ops.FlowList())
		})

		r.Delete("/api/v1/flows/{portID}", func(w http.ResponseWriter, req *http.Request) {
			portID, ok := parseUint32Param(w, req, "portID")
			if !ok {
				return
			}
			writeResult(w, ops.FlowDestroy(portID))
		})

		r.Get("/api/v1/ipc/{ipcID}/connections", func(w http.ResponseWriter, req *http.Request) {
			ipcID, ok := parseIPCID(w, req)
			if !ok {
				return
			}
			conns, res := ops.ConnDump(ipcID)
			if !res.OK {
				writeResult(w, res)
				return
			}
			writeJSON(w, http.StatusOK, conns)
		})

		r.Get("/api/v1/ipc/{ipcID}/pff", func(w http.ResponseWriter, req *http.Request) {
			ipcID, ok := parseIPCID(w, req)
			if !ok {
				return
			}
			pff, res := ops.PFFDump(ipcID)
			if !res.OK {
				writeResult(w, res)
				return
			}
			writeJSON(w, http.StatusOK, pff)
		})
	})

	return r
}

func parseIPCID(w http.ResponseWriter, req *http.Request) (uint16, bool) {
	v, err := strconv.ParseUint(chi.URLParam(req, "ipcID"), 10, 16)
	if err != nil {
		http.Error(w, "invalid ipc process id", http.StatusBadRequest)
		return 0, false
	}
	return uint16(v), true
}

func parseUint32Param(w http.ResponseWriter, req *http.Request, name string) (uint32, bool) {
	v, err := strconv.ParseUint(chi.URLParam(req, name), 10, 32)
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return uint32(v), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, res Result) {
	status := http.StatusOK
	if !res.OK {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

// requestLogger mirrors dittofs's router.go request logging middleware:
// healthchecks at DEBUG, everything else at INFO.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", duration.String(),
		}
		if r.URL.Path == "/health" {
			logger.Debug("controlapi request completed", logArgs...)
		} else {
			logger.Info("controlapi request completed", logArgs...)
		}
	})
}
