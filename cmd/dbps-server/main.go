// Command dbps-server runs the DBPS HTTP API: token minting plus
// encrypt/decrypt bound to the encryption sequencer. Configuration is
// read from environment variables; CLI argument parsing is out of scope.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/protegrity/dbps/auth"
	"github.com/protegrity/dbps/internal/dbpslog"
	"github.com/protegrity/dbps/internal/metrics"
	"github.com/protegrity/dbps/server"
)

func main() {
	log := dbpslog.Default().Module("cmd")

	addr := envOr("DBPS_LISTEN_ADDR", ":8080")
	skipChecks := os.Getenv("DBPS_SKIP_CREDENTIAL_CHECK") == "true"

	secret := os.Getenv("DBPS_JWT_SECRET")
	if secret == "" {
		var buf [32]byte
		if _, err := rand.Read(buf[:]); err != nil {
			log.Error("failed to generate ephemeral JWT secret", "error", err)
			os.Exit(1)
		}
		secret = hex.EncodeToString(buf[:])
		log.Warn("DBPS_JWT_SECRET not set, generated an ephemeral secret for this process")
	}

	credentials := map[string]string{}
	if path := os.Getenv("DBPS_CREDENTIALS_FILE"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			log.Error("failed to open credentials file", "path", path, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&credentials); err != nil {
			log.Error("failed to parse credentials file", "path", path, "error", err)
			os.Exit(1)
		}
	}

	store := auth.NewStore(credentials, []byte(secret), skipChecks)
	m := metrics.New(prometheus.DefaultRegisterer)

	srv := server.New(store, skipChecks, log.Module("server"), m)

	log.Info("dbps-server listening", "addr", addr, "skip_credential_check", skipChecks)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
