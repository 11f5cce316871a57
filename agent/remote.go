package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/protegrity/dbps/dbpserr"
	"github.com/protegrity/dbps/enums"
	"github.com/protegrity/dbps/pool"
	"github.com/protegrity/dbps/schema"
	"github.com/protegrity/dbps/transport"
)

// ConnectionConfig is the decoded shape of the remote agent's connection
// configuration file, per §4.11/§6.3. Unknown keys are ignored by
// mapstructure; malformed pool values fail decoding.
type ConnectionConfig struct {
	ServerURL       string            `mapstructure:"server_url"`
	Credentials     map[string]string `mapstructure:"credentials"`
	ConnectionPool  PoolConfigKeys    `mapstructure:"connection_pool"`
}

// PoolConfigKeys mirrors the pool-related keys of §6.3, in the units the
// wire format specifies (milliseconds/seconds), converted to
// time.Duration during Remote construction.
type PoolConfigKeys struct {
	MaxPoolSize               int `mapstructure:"max_pool_size"`
	BorrowTimeoutMilliseconds int `mapstructure:"borrow_timeout_milliseconds"`
	MaxIdleTimeMilliseconds   int `mapstructure:"max_idle_time_milliseconds"`
	ConnectTimeoutSeconds     int `mapstructure:"connect_timeout_seconds"`
	ReadTimeoutSeconds        int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds       int `mapstructure:"write_timeout_seconds"`
	NumWorkerThreads          int `mapstructure:"num_worker_threads"`
}

// DecodeConnectionConfig decodes a generic map (as loaded from a JSON
// connection configuration file) into a validated ConnectionConfig.
func DecodeConnectionConfig(raw map[string]interface{}) (ConnectionConfig, error) {
	var cfg ConnectionConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: false,
		Result:      &cfg,
	})
	if err != nil {
		return ConnectionConfig{}, dbpserr.NewInvalidInput("agent: connection config decoder: %v", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return ConnectionConfig{}, dbpserr.NewInvalidInput("agent: malformed connection configuration: %v", err)
	}
	if cfg.ServerURL == "" {
		return ConnectionConfig{}, dbpserr.NewValidation("agent: connection configuration requires server_url")
	}
	p := cfg.ConnectionPool
	if p.MaxPoolSize < 0 || p.BorrowTimeoutMilliseconds < 0 || p.MaxIdleTimeMilliseconds < 0 ||
		p.ConnectTimeoutSeconds < 0 || p.ReadTimeoutSeconds < 0 || p.WriteTimeoutSeconds < 0 || p.NumWorkerThreads < 0 {
		return ConnectionConfig{}, dbpserr.NewValidation("agent: connection_pool values must be non-negative integers")
	}
	return cfg, nil
}

func (p PoolConfigKeys) toPoolConfig() pool.Config {
	cfg := pool.DefaultConfig()
	if p.MaxPoolSize > 0 {
		cfg.MaxPoolSize = p.MaxPoolSize
	}
	if p.BorrowTimeoutMilliseconds > 0 {
		cfg.BorrowTimeout = time.Duration(p.BorrowTimeoutMilliseconds) * time.Millisecond
	}
	if p.MaxIdleTimeMilliseconds > 0 {
		cfg.MaxIdleTime = time.Duration(p.MaxIdleTimeMilliseconds) * time.Millisecond
	}
	if p.ConnectTimeoutSeconds > 0 {
		cfg.ConnectTimeout = time.Duration(p.ConnectTimeoutSeconds) * time.Second
	}
	if p.ReadTimeoutSeconds > 0 {
		cfg.ReadTimeout = time.Duration(p.ReadTimeoutSeconds) * time.Second
	}
	if p.WriteTimeoutSeconds > 0 {
		cfg.WriteTimeout = time.Duration(p.WriteTimeoutSeconds) * time.Second
	}
	return cfg
}

// Remote forwards encrypt/decrypt to a DBPS server over the pooled HTTP
// transport.
type Remote struct {
	params             InitParams
	cfg                ConnectionConfig
	client             *transport.Client
	userID             string
	encryptionMetadata map[string]string
}

// dialTCP dials the host:port of origin, which is the configured server_url;
// a URL without an explicit port is dialled on port 80.
func dialTCP(ctx context.Context, origin string, cfg pool.Config) (net.Conn, error) {
	addr := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		addr = u.Host
		if u.Port() == "" {
			addr = net.JoinHostPort(u.Hostname(), "80")
		}
	}
	d := net.Dialer{Timeout: cfg.ConnectTimeout}
	return d.DialContext(ctx, "tcp", addr)
}

// doHTTPOverConn writes a request directly onto a borrowed pooled
// connection and parses the response, rather than handing the connection
// to a fresh net/http.Transport — the pool already owns the connection's
// lifecycle.
func doHTTPOverConn(ctx context.Context, conn *pool.Conn, method, endpoint string, body []byte, headers http.Header) (*transport.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header = headers
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := req.Write(conn); err != nil {
		return nil, err
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &transport.Response{StatusCode: resp.StatusCode, Body: respBody, Headers: resp.Header}, nil
}

// NewRemote reads the connection configuration, initialises the pool and
// a pooled client for the server's origin, and probes /healthz.
func NewRemote(ctx context.Context, p InitParams, rawConfig map[string]interface{}) (*Remote, error) {
	cfg, err := DecodeConnectionConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	registry := pool.NewRegistry(dialTCP, nil)
	registry.SetConfig(cfg.ServerURL, cfg.ConnectionPool.toPoolConfig())

	var client *transport.Client
	fetch := func(ctx context.Context) (string, string, time.Time, error) {
		body, err := json.Marshal(map[string]string{
			"client_id": cfg.Credentials["client_id"],
			"api_key":   cfg.Credentials["api_key"],
		})
		if err != nil {
			return "", "", time.Time{}, err
		}
		resp, err := client.Post(ctx, strings.TrimSuffix(cfg.ServerURL, "/")+"/auth", body, false)
		if err != nil {
			return "", "", time.Time{}, err
		}
		if resp.StatusCode != http.StatusOK {
			return "", "", time.Time{}, dbpserr.NewAuth("agent: /auth returned status %d", resp.StatusCode)
		}
		var out struct {
			Token     string `json:"token"`
			TokenType string `json:"token_type"`
			ExpiresIn int    `json:"expires_in"`
		}
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return "", "", time.Time{}, err
		}
		return out.Token, out.TokenType, time.Now().Add(time.Duration(out.ExpiresIn) * time.Second), nil
	}

	client = transport.New(cfg.ServerURL, registry, fetch, doHTTPOverConn, cfg.ConnectionPool.NumWorkerThreads)

	resp, err := client.Get(ctx, strings.TrimSuffix(cfg.ServerURL, "/")+"/healthz", false)
	if err != nil {
		return nil, dbpserr.NewTransport(err, "agent: healthz probe failed")
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != "OK" {
		return nil, dbpserr.NewTransport(nil, "agent: healthz probe returned unexpected response")
	}

	appCtx, err := parseAppContext(p.ApplicationContext)
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(p.ColumnEncryptionMetadata))
	for k, v := range p.ColumnEncryptionMetadata {
		metadata[k] = v
	}

	return &Remote{params: p, cfg: cfg, client: client, userID: appCtx.UserID, encryptionMetadata: metadata}, nil
}

// UpdateEncryptionMetadata lets a decrypt caller supply the metadata
// produced by a prior encrypt call.
func (r *Remote) UpdateEncryptionMetadata(metadata map[string]string) {
	r.encryptionMetadata = make(map[string]string, len(metadata))
	for k, v := range metadata {
		r.encryptionMetadata[k] = v
	}
}

func (r *Remote) endpoint(path string) string {
	return strings.TrimSuffix(r.cfg.ServerURL, "/") + path
}

// Encrypt forwards plaintext to the server's /encrypt endpoint.
func (r *Remote) Encrypt(plaintext []byte) Result {
	req := schema.EncryptRequest{
		ColumnReference: schema.ColumnReference{Name: r.params.ColumnName},
		DataBatch: schema.DataBatch{
			DatatypeInfo: schema.DatatypeInfo{Datatype: r.params.Datatype.String(), Length: r.params.DatatypeLength},
			Value:        plaintext,
			ValueFormat:  schema.ValueFormat{Compression: r.params.Compression.String(), EncodingAttributes: r.params.EncodingAttributes},
		},
		DataBatchEncrypted: schema.DataBatchEncrypted{
			ValueFormat: schema.EncryptedValueFormat{Compression: r.params.Compression.String()},
		},
		Encryption:         schema.Encryption{KeyID: r.params.KeyID},
		Access:             schema.Access{UserID: r.userID},
		ApplicationContext: r.params.ApplicationContext,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return failure("", dbpserr.NewInvalidInput("agent: failed to marshal encrypt request: %v", err))
	}

	resp, err := r.client.Post(context.Background(), r.endpoint("/encrypt"), body, true)
	if err != nil {
		return failure("", err)
	}
	if resp.StatusCode != http.StatusOK {
		return failure("", dbpserr.NewTransport(nil, "agent: encrypt request failed with status %d", resp.StatusCode))
	}

	var out schema.EncryptResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return failure("", dbpserr.NewInvalidInput("agent: malformed encrypt response: %v", err))
	}
	if out.DataBatchEncrypted.ValueFormat.Compression != r.params.Compression.String() {
		return failure("", dbpserr.NewValidation("agent: encrypt response compression mismatch"))
	}
	r.encryptionMetadata = out.EncryptionMetadata
	return success(out.DataBatchEncrypted.Value, out.EncryptionMetadata)
}

// Decrypt forwards ciphertext to the server's /decrypt endpoint.
func (r *Remote) Decrypt(ciphertext []byte, encryptionMetadata map[string]string) Result {
	if encryptionMetadata != nil {
		r.UpdateEncryptionMetadata(encryptionMetadata)
	}
	req := schema.DecryptRequest{
		ColumnReference: schema.ColumnReference{Name: r.params.ColumnName},
		DataBatch: schema.DataBatch{
			DatatypeInfo: schema.DatatypeInfo{Datatype: r.params.Datatype.String(), Length: r.params.DatatypeLength},
			ValueFormat:  schema.ValueFormat{Compression: r.params.Compression.String(), EncodingAttributes: r.params.EncodingAttributes},
		},
		DataBatchEncrypted: schema.DataBatchEncrypted{
			ValueFormat: schema.EncryptedValueFormat{Compression: r.params.Compression.String()},
			Value:       ciphertext,
		},
		Encryption:         schema.Encryption{KeyID: r.params.KeyID},
		Access:             schema.Access{UserID: r.userID},
		ApplicationContext: r.params.ApplicationContext,
		EncryptionMetadata: r.encryptionMetadata,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return failure("", dbpserr.NewInvalidInput("agent: failed to marshal decrypt request: %v", err))
	}

	resp, err := r.client.Post(context.Background(), r.endpoint("/decrypt"), body, true)
	if err != nil {
		return failure("", err)
	}
	if resp.StatusCode != http.StatusOK {
		return failure("", dbpserr.NewTransport(nil, "agent: decrypt request failed with status %d", resp.StatusCode))
	}

	var out schema.DecryptResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return failure("", dbpserr.NewInvalidInput("agent: malformed decrypt response: %v", err))
	}
	gotDatatype, ok := enums.ParseDatatype(out.DataBatch.DatatypeInfo.Datatype)
	if !ok || gotDatatype != r.params.Datatype {
		return failure("", dbpserr.NewValidation("agent: decrypt response datatype mismatch"))
	}
	if out.DataBatch.ValueFormat.Compression != r.params.Compression.String() {
		return failure("", dbpserr.NewValidation("agent: decrypt response compression mismatch"))
	}
	return success(out.DataBatch.Value, nil)
}
