package gemini

import (
	"io"
	"strings"
)

// sendRequest writes the request line in a single write.
func sendRequest(conn io.Writer, requestURL string) error {
	line := requestURL + "\r\n"
	n, err := io.WriteString(conn, line)
	if err == nil && n < len(line) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &CodecError{Op: OpWrite, Err: err}
	}
	return nil
}

// readResponse reads until the server closes the connection and splits the
// result at the first CRLF. Invalid UTF-8 is replaced rather than rejected.
func readResponse(conn io.Reader) (header, body string, err error) {
	raw, err := io.ReadAll(conn)
	if err != nil {
		return "", "", &CodecError{Op: OpRead, Err: err}
	}

	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	header, body, found := strings.Cut(text, "\r\n")
	if !found {
		return "", "", &CodecError{Op: OpFraming, Err: ErrMalformedFraming}
	}
	return header, body, nil
}
