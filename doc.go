// Package gemini is a client for the Gemini protocol.
//
// A request is one line: the absolute URL followed by CRLF. The server
// answers with a status line, "<two digit code> <meta>" and CRLF, then the
// body, and closes the connection. Client.Fetch performs that exchange and
// returns the parsed response. Client.Request builds on it for browsers: it
// resolves what the user typed or clicked against the current page and
// always returns an Outcome that can be displayed, turning every failure
// into a text/plain diagnostic.
//
// It will automatically handle URLs that have IDNs in them, ie domains with Unicode.
// It will convert to punycode for DNS and for sending to the server.
//
// Certificates are not validated by default, since Gemini servers are
// expected to be trusted on first use. See CertPolicy.
package gemini
