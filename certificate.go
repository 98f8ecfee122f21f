package gemini

import (
	"crypto/x509"
	"fmt"
	"net"
	"strings"
	"time"
)

// CertPolicy decides which server certificates a Client accepts.
//
// Gemini servers mostly use self-signed certificates and clients are
// expected to trust them on first use. The core doesn't keep a trust store,
// so the default accepts any certificate and leaves pinning to
// Client.VerifyCertificate.
type CertPolicy int

const (
	// AcceptAny performs no certificate validation at all.
	AcceptAny CertPolicy = iota
	// VerifyHostname requires the leaf certificate to name the host and to
	// be inside its validity window. The chain is not checked.
	VerifyHostname
	// VerifyChain uses standard chain validation against Client.RootCAs,
	// or the system pool when that is nil.
	VerifyChain
)

func (p CertPolicy) String() string {
	switch p {
	case AcceptAny:
		return "any"
	case VerifyHostname:
		return "hostname"
	case VerifyChain:
		return "chain"
	}
	return fmt.Sprintf("CertPolicy(%d)", int(p))
}

// ParseCertPolicy is the inverse of CertPolicy.String.
func ParseCertPolicy(s string) (CertPolicy, error) {
	for _, p := range []CertPolicy{AcceptAny, VerifyHostname, VerifyChain} {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown certificate policy %q", s)
}

// checkCertificate applies the VerifyHostname policy to the server's leaf
// certificate.
func checkCertificate(cert *x509.Certificate, hostname string, now time.Time) error {
	if !certMatchesHost(cert, hostname) {
		return fmt.Errorf("certificate is not valid for %s", hostname)
	}
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("server cert is for the future")
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("server cert is expired")
	}
	return nil
}

// certMatchesHost reports whether cert names hostname. IP addresses only
// match IP SANs. DNS names match case-insensitively, with a leftmost
// wildcard label allowed. Many capsules still ship certificates carrying
// only a Common Name, so the CN is used when there are no DNS SANs.
func certMatchesHost(cert *x509.Certificate, hostname string) bool {
	hostname = strings.TrimSuffix(strings.Trim(hostname, "[]"), ".")
	if ip := net.ParseIP(hostname); ip != nil {
		for _, candidate := range cert.IPAddresses {
			if ip.Equal(candidate) {
				return true
			}
		}
		return false
	}

	names := cert.DNSNames
	if len(names) == 0 && cert.Subject.CommonName != "" {
		names = []string{cert.Subject.CommonName}
	}
	for _, pattern := range names {
		if matchHostname(pattern, hostname) {
			return true
		}
	}
	return false
}

func matchHostname(pattern, host string) bool {
	pattern = strings.ToLower(strings.TrimSuffix(pattern, "."))
	host = strings.ToLower(host)
	if pattern == "" || host == "" {
		return false
	}

	patternLabels := strings.Split(pattern, ".")
	hostLabels := strings.Split(host, ".")
	if len(patternLabels) != len(hostLabels) {
		return false
	}
	for i, label := range patternLabels {
		if i == 0 && label == "*" && len(patternLabels) > 2 {
			continue
		}
		if label != hostLabels[i] {
			return false
		}
	}
	return true
}
