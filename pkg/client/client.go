package client

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/downfa11-org/go-kvs/util"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// AckTimeout bounds the wait for a single response.
const AckTimeout = 5 * time.Second

// KvsClient talks to a kvs-server over one connection. It is not safe for
// concurrent use; open one client per goroutine.
type KvsClient struct {
	conn    net.Conn
	timeout time.Duration
}

// Connect dials addr. A non-nil tlsConfig dials over TLS.
func Connect(addr string, tlsConfig *tls.Config) (*KvsClient, error) {
	var (
		conn net.Conn
		err  error
	)
	if tlsConfig != nil {
		conn, err = tls.Dial("tcp", addr, tlsConfig)
	} else {
		conn, err = net.Dial("tcp", addr)
	}
	if err != nil {
		return nil, types.IOError(fmt.Sprintf("connect to %s", addr), err)
	}
	return NewClient(conn), nil
}

// LoadTLSConfig builds a client TLS config. caPath names a PEM bundle to trust
// instead of the system roots; serverName overrides the name checked against
// the server certificate.
func LoadTLSConfig(caPath, serverName string, insecure bool) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         serverName,
		InsecureSkipVerify: insecure,
	}
	if caPath == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, types.IOError("read CA bundle", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caPath)
	}
	cfg.RootCAs = pool
	return cfg, nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *KvsClient {
	return &KvsClient{conn: conn, timeout: AckTimeout}
}

// SetTimeout changes the response timeout; zero waits forever.
func (c *KvsClient) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Get returns the value of key and whether it exists.
func (c *KvsClient) Get(key string) (string, bool, error) {
	resp, err := c.call(types.Request{Kind: types.RequestGet, Key: key})
	if err != nil {
		return "", false, err
	}
	switch resp.Status {
	case types.StatusOK:
		return resp.Value, true, nil
	case types.StatusNotFound:
		return "", false, nil
	default:
		return "", false, responseError(resp)
	}
}

func (c *KvsClient) Set(key, value string) error {
	resp, err := c.call(types.Request{Kind: types.RequestSet, Key: key, Value: value})
	if err != nil {
		return err
	}
	if resp.Status != types.StatusOK {
		return responseError(resp)
	}
	return nil
}

// Remove deletes key, returning types.ErrKeyNotFound when it does not exist.
func (c *KvsClient) Remove(key string) error {
	resp, err := c.call(types.Request{Kind: types.RequestRemove, Key: key})
	if err != nil {
		return err
	}
	if resp.Status != types.StatusOK {
		return responseError(resp)
	}
	return nil
}

func (c *KvsClient) Close() error {
	return c.conn.Close()
}

func (c *KvsClient) call(req types.Request) (types.Response, error) {
	req.ID = uuid.NewString()

	data, err := msgpack.Marshal(&req)
	if err != nil {
		return types.Response{}, types.SerializationError("encode request", err)
	}
	if err := util.WriteWithLength(c.conn, data); err != nil {
		return types.Response{}, types.IOError("send request", err)
	}

	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return types.Response{}, types.IOError("set read deadline", err)
		}
		defer func() {
			_ = c.conn.SetReadDeadline(time.Time{})
		}()
	}

	frame, err := util.ReadWithLength(c.conn)
	if err != nil {
		return types.Response{}, types.IOError("read response", err)
	}

	var resp types.Response
	if err := msgpack.Unmarshal(frame, &resp); err != nil {
		return types.Response{}, types.SerializationError("decode response", err)
	}
	if resp.ID != req.ID {
		return types.Response{}, fmt.Errorf("%w: response id %q does not match request %q", types.ErrSerialization, resp.ID, req.ID)
	}
	return resp, nil
}

func responseError(resp types.Response) error {
	switch resp.Status {
	case types.StatusKeyNotFound:
		return types.ErrKeyNotFound
	case types.StatusError:
		return types.StringError(resp.Error)
	default:
		return types.StringError(fmt.Sprintf("unexpected response status %d", resp.Status))
	}
}
