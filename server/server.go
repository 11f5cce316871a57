// Package server implements the DBPS HTTP API: health/status probes, the
// token endpoint, and the encrypt/decrypt handlers binding the wire
// schemas to the encryption sequencer.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/protegrity/dbps/auth"
	"github.com/protegrity/dbps/dbpserr"
	"github.com/protegrity/dbps/enums"
	"github.com/protegrity/dbps/internal/dbpslog"
	"github.com/protegrity/dbps/internal/metrics"
	"github.com/protegrity/dbps/schema"
	"github.com/protegrity/dbps/sequencer"
)

// Server wires the credential store and a sequencer factory to the HTTP
// surface defined in §4.10/§6.1.
type Server struct {
	store      *auth.Store
	skipChecks bool
	log        dbpslog.Logger
	metrics    *metrics.Metrics
}

// New builds a Server. log is typically internal/dbpslog's Module("server").
// m may be nil, in which case request durations are not recorded.
func New(store *auth.Store, skipChecks bool, log dbpslog.Logger, m *metrics.Metrics) *Server {
	return &Server{store: store, skipChecks: skipChecks, log: log, metrics: m}
}

// Handler returns the fully wired http.Handler, including CORS and the
// Prometheus /metrics endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.timed("healthz", s.handleHealthz))
	mux.HandleFunc("/statusz", s.timed("statusz", s.handleStatusz))
	mux.HandleFunc("/auth", s.timed("auth", s.handleAuth))
	mux.HandleFunc("/encrypt", s.timed("encrypt", s.handleEncrypt))
	mux.HandleFunc("/decrypt", s.timed("decrypt", s.handleDecrypt))
	mux.Handle("/metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) timed(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			handler(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		handler(rec, r)
		s.metrics.RequestDuration.WithLabelValues(endpoint, strconv.Itoa(rec.status/100)+"xx").Observe(time.Since(start).Seconds())
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleStatusz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"skip_credential_check": s.skipChecks,
	})
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"client_id"`
		APIKey   string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	token, _, err := s.store.MintToken(req.ClientID, req.APIKey)
	if err != nil {
		if dbpserr.IsAuth(err) {
			writeJSON(w, http.StatusUnauthorized, errorBody(err))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	if s.metrics != nil {
		s.metrics.TokenMints.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": 14400,
	})
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if err := s.store.VerifyForEndpoint(r.Header.Get("Authorization")); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody(err))
		return false
	}
	return true
}

func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	var req schema.EncryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}

	datatype, ok := enums.ParseDatatype(req.DataBatch.DatatypeInfo.Datatype)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody(dbpserr.NewValidation("unrecognised datatype %q", req.DataBatch.DatatypeInfo.Datatype)))
		return
	}
	compressionCodec, ok := enums.ParseCodec(req.DataBatch.ValueFormat.Compression)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody(dbpserr.NewValidation("unrecognised compression %q", req.DataBatch.ValueFormat.Compression)))
		return
	}
	encCompression, ok := enums.ParseCodec(req.DataBatchEncrypted.ValueFormat.Compression)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody(dbpserr.NewValidation("unrecognised encrypted compression %q", req.DataBatchEncrypted.ValueFormat.Compression)))
		return
	}
	format, ok := enums.ParseEncoding(req.DataBatch.ValueFormat.Format)
	if !ok {
		format = enums.Plain
	}

	seq, err := sequencer.New(sequencer.Params{
		ColumnName:           req.ColumnReference.Name,
		Datatype:             datatype,
		DatatypeLength:       req.DataBatch.DatatypeInfo.Length,
		Compression:          compressionCodec,
		Format:               format,
		EncodingAttributes:   req.DataBatch.ValueFormat.EncodingAttributes,
		EncryptedCompression: encCompression,
		KeyID:                req.Encryption.KeyID,
		UserID:               req.Access.UserID,
		ApplicationContext:   req.ApplicationContext,
	}, nil)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}

	if err := seq.ConvertAndEncrypt(req.DataBatch.Value); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}

	resp := schema.EncryptResponse{
		DataBatchEncrypted: schema.DataBatchEncrypted{
			ValueFormat: schema.EncryptedValueFormat{Compression: req.DataBatchEncrypted.ValueFormat.Compression},
			Value:       seq.EncryptedResult,
		},
		Access: schema.Access{UserID: req.Access.UserID},
		Debug:  schema.Debug{ReferenceID: req.Debug.ReferenceID},
		EncryptionMetadata: seq.EncryptionMetadata,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	var req schema.DecryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}

	datatype, ok := enums.ParseDatatype(req.DataBatch.DatatypeInfo.Datatype)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody(dbpserr.NewValidation("unrecognised datatype %q", req.DataBatch.DatatypeInfo.Datatype)))
		return
	}
	compressionCodec, ok := enums.ParseCodec(req.DataBatch.ValueFormat.Compression)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody(dbpserr.NewValidation("unrecognised compression %q", req.DataBatch.ValueFormat.Compression)))
		return
	}
	encCompression, ok := enums.ParseCodec(req.DataBatchEncrypted.ValueFormat.Compression)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody(dbpserr.NewValidation("unrecognised encrypted compression %q", req.DataBatchEncrypted.ValueFormat.Compression)))
		return
	}
	format, ok := enums.ParseEncoding(req.DataBatch.ValueFormat.Format)
	if !ok {
		format = enums.Plain
	}

	seq, err := sequencer.New(sequencer.Params{
		ColumnName:           req.ColumnReference.Name,
		Datatype:             datatype,
		DatatypeLength:       req.DataBatch.DatatypeInfo.Length,
		Compression:          compressionCodec,
		Format:               format,
		EncodingAttributes:   req.DataBatch.ValueFormat.EncodingAttributes,
		EncryptedCompression: encCompression,
		KeyID:                req.Encryption.KeyID,
		UserID:               req.Access.UserID,
		ApplicationContext:   req.ApplicationContext,
		EncryptionMetadata:   req.EncryptionMetadata,
	}, nil)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}

	if err := seq.ConvertAndDecrypt(req.DataBatchEncrypted.Value); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}

	resp := schema.DecryptResponse{
		DataBatch: schema.DataBatch{
			DatatypeInfo: req.DataBatch.DatatypeInfo,
			Value:        seq.DecryptedResult,
			ValueFormat:  req.DataBatch.ValueFormat,
		},
		Access: schema.Access{UserID: req.Access.UserID},
		Debug:  schema.Debug{ReferenceID: req.Debug.ReferenceID},
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func errorBody(err error) map[string]interface{} {
	return map[string]interface{}{
		"success":       false,
		"error_message": err.Error(),
	}
}
