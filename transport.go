package gemini

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"time"
)

// DefaultPort is dialed when a URL doesn't carry a port.
const DefaultPort = "1965"

// connect dials addr and performs a TLS handshake using hostname for SNI
// and certificate checks. The returned connection belongs to the caller.
func (c *Client) connect(ctx context.Context, addr, hostname string) (*tls.Conn, error) {
	dialer := &net.Dialer{Timeout: c.Timeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: OpConnect, Addr: addr, Err: err}
	}

	conn := tls.Client(raw, c.tlsConfig(hostname))
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, &TransportError{Op: OpTLS, Addr: addr, Err: err}
	}

	if err := c.verifyPeer(conn, hostname); err != nil {
		conn.Close()
		return nil, &TransportError{Op: OpTLS, Addr: addr, Err: err}
	}
	return conn, nil
}

func (c *Client) tlsConfig(hostname string) *tls.Config {
	conf := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		ServerName:   hostname,
		KeyLogWriter: c.KeyLogWriter,
	}
	if c.CertPolicy == VerifyChain {
		conf.RootCAs = c.RootCAs
	} else {
		// Self-signed certs are the norm, checks happen in verifyPeer
		conf.InsecureSkipVerify = true
	}
	return conf
}

func (c *Client) verifyPeer(conn *tls.Conn, hostname string) error {
	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return errors.New("server sent no certificate")
	}
	cert := certs[0]

	if c.CertPolicy == VerifyHostname {
		if err := checkCertificate(cert, hostname, time.Now()); err != nil {
			return err
		}
	}
	if c.VerifyCertificate != nil {
		return c.VerifyCertificate(cert, hostname)
	}
	return nil
}
