package gemini

import (
	"errors"
	"fmt"
)

// Diagnose renders err as the plain text body shown in place of the page at
// location.
func Diagnose(location string, err error) string {
	var (
		statusErr    *StatusError
		invalidErr   *InvalidStatusError
		resolveErr   *ResolutionError
		transportErr *TransportError
		codecErr     *CodecError
	)

	switch {
	case errors.As(err, &statusErr), errors.As(err, &invalidErr):
		return fmt.Sprintf("Unexpected response from server loading URL: %s\n%v", location, err)
	case errors.Is(err, ErrUnsupportedScheme):
		return fmt.Sprintf("Cannot load URL %s\n%v", location, err)
	case errors.As(err, &resolveErr):
		return fmt.Sprintf("Could not parse URL %s\n%v", location, err)
	case errors.As(err, &transportErr):
		if transportErr.Op == OpTLS {
			return fmt.Sprintf("Could not get TLS certificate for URL %s\n%v", location, err)
		}
		return fmt.Sprintf("Could not connect to server: %s\n%v", location, err)
	case errors.As(err, &codecErr):
		switch codecErr.Op {
		case OpWrite:
			return fmt.Sprintf("Error writing to socket for URL %s\n%v", location, err)
		case OpRead:
			return fmt.Sprintf("Error reading from socket for URL %s\n%v", location, err)
		}
		return fmt.Sprintf("Invalid response from server loading URL: %s\n%v", location, err)
	}
	return fmt.Sprintf("Request for URL %s failed\n%v", location, err)
}
