package client_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/downfa11-org/go-kvs/pkg/client"
	"github.com/downfa11-org/go-kvs/pkg/engine"
	"github.com/downfa11-org/go-kvs/pkg/pool"
	"github.com/downfa11-org/go-kvs/pkg/server"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfSignedCert returns a certificate for 127.0.0.1 and the path of its PEM.
func selfSignedCert(t *testing.T) (tls.Certificate, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "kvs-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	caPath := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(caPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o644))
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, caPath
}

func startTLSServer(t *testing.T, cert tls.Certificate) string {
	t.Helper()
	eng, err := engine.Open(t.TempDir())
	require.NoError(t, err)

	serverTLS := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	p, err := pool.New(pool.KindShared, 4)
	require.NoError(t, err)
	srv := server.New(eng, p, server.Options{EngineName: types.EngineKvs, TLS: serverTLS})
	go func() { _ = srv.Serve(tls.NewListener(ln, serverTLS)) }()

	t.Cleanup(func() {
		_ = srv.Close()
		_ = eng.Close()
	})
	return ln.Addr().String()
}

func TestClientOverTLS(t *testing.T) {
	cert, caPath := selfSignedCert(t)
	addr := startTLSServer(t, cert)

	cfg, err := client.LoadTLSConfig(caPath, "", false)
	require.NoError(t, err)
	c, err := client.Connect(addr, cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("key1", "value1"))
	v, ok, err := c.Get("key1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value1", v)
}

func TestClientRejectsUntrustedServer(t *testing.T) {
	cert, _ := selfSignedCert(t)
	addr := startTLSServer(t, cert)

	cfg, err := client.LoadTLSConfig("", "", false)
	require.NoError(t, err)
	_, err = client.Connect(addr, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
}

func TestLoadTLSConfigErrors(t *testing.T) {
	_, err := client.LoadTLSConfig(filepath.Join(t.TempDir(), "missing.pem"), "", false)
	assert.ErrorIs(t, err, types.ErrIO)

	junk := filepath.Join(t.TempDir(), "junk.pem")
	require.NoError(t, os.WriteFile(junk, []byte("not a certificate"), 0o644))
	_, err = client.LoadTLSConfig(junk, "", false)
	assert.Error(t, err)
}
