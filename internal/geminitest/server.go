// Package geminitest runs Gemini servers on the loopback interface for
// tests, in the manner of net/http/httptest.
package geminitest

import (
	"bufio"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"net"
	"strings"
	"sync"
	"time"
)

// Handler writes the raw response for one request. requestURL is the
// request line without its CRLF, with gemini:// added if it lacked a scheme.
type Handler interface {
	ServeGemini(w io.Writer, requestURL string)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(w io.Writer, requestURL string)

func (f HandlerFunc) ServeGemini(w io.Writer, requestURL string) {
	f(w, requestURL)
}

// Reply returns a handler answering every request with the given status,
// meta and body.
func Reply(status int, meta, body string) Handler {
	return HandlerFunc(func(w io.Writer, _ string) {
		fmt.Fprintf(w, "%d %s\r\n%s", status, meta, body)
	})
}

// Raw returns a handler writing response verbatim.
func Raw(response []byte) Handler {
	return HandlerFunc(func(w io.Writer, _ string) {
		w.Write(response)
	})
}

// Server is a TLS Gemini server listening on 127.0.0.1 with a self-signed
// certificate for 127.0.0.1, ::1 and localhost.
type Server struct {
	// URL is gemini://127.0.0.1:<port>
	URL         string
	Addr        string
	Certificate *x509.Certificate

	listener net.Listener
	handler  Handler
	wg       sync.WaitGroup

	mu       sync.Mutex
	requests []string
}

// NewServer starts a server. Call Close when done.
func NewServer(handler Handler) (*Server, error) {
	cert, err := selfSigned()
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %v", err)
	}

	config := &tls.Config{Certificates: []tls.Certificate{cert}}
	ln, err := tls.Listen("tcp", "127.0.0.1:0", config)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %v", err)
	}

	s := &Server{
		URL:         "gemini://" + ln.Addr().String(),
		Addr:        ln.Addr().String(),
		Certificate: cert.Leaf,
		listener:    ln,
		handler:     handler,
	}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Requests returns the request lines received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// CertPool returns a pool holding only the server's certificate.
func (s *Server) CertPool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(s.Certificate)
	return pool
}

// Close stops the listener and waits for open connections to finish.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	requestURL, err := getRequestURL(conn)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, requestURL)
	s.mu.Unlock()

	s.handler.ServeGemini(conn, requestURL)
}

func getRequestURL(conn io.Reader) (string, error) {
	scanner := bufio.NewScanner(conn)
	if ok := scanner.Scan(); !ok {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}

	rawURL := scanner.Text()
	if strings.Contains(rawURL, "://") {
		return rawURL, nil
	}

	return fmt.Sprintf("gemini://%s", rawURL), nil
}

func selfSigned() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(now.UnixNano()),
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}
