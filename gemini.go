package gemini

import "strings"

// Gemini status codes as defined in the Gemini spec Appendix 1.
const (
	StatusInput          = 10
	StatusSensitiveInput = 11

	StatusSuccess                              = 20
	StatusSuccessEndOfClientCertificateSession = 21

	StatusRedirect          = 30
	StatusRedirectTemporary = 30
	StatusRedirectPermanent = 31

	StatusTemporaryFailure = 40
	StatusUnavailable      = 41
	StatusCGIError         = 42
	StatusProxyError       = 43
	StatusSlowDown         = 44

	StatusPermanentFailure    = 50
	StatusNotFound            = 51
	StatusGone                = 52
	StatusProxyRequestRefused = 53
	StatusBadRequest          = 59

	StatusClientCertificateRequired     = 60
	StatusTransientCertificateRequested = 61
	StatusAuthorisedCertificateRequired = 62
	StatusCertificateNotAccepted        = 63
	StatusFutureCertificateRejected     = 64
	StatusExpiredCertificateRejected    = 65
)

// All the statuses between 10 and 65 that have no assigned meaning.
var invalidStatuses = []int{
	12, 13, 14, 15, 16, 17, 18, 19,
	22, 23, 24, 25, 26, 27, 28, 29,
	32, 33, 34, 35, 36, 37, 38, 39,
	45, 46, 47, 48, 49,
	54, 55, 56, 57, 58,
}

// SimplifyStatus simplify the response status by omitting the detailed second digit of the status code.
func SimplifyStatus(status int) int {
	return (status / 10) * 10
}

// IsStatusValid checks whether an int status is one of the codes assigned by
// the Gemini spec. Codes that fall inside a known category but have no
// assigned meaning are still classified by Categorize.
func IsStatusValid(status int) bool {
	if status < 10 || status > 65 {
		return false
	}
	for _, v := range invalidStatuses {
		if status == v {
			return false
		}
	}
	return true
}

// Category is the class of a status code, taken from its first digit.
type Category int

const (
	CategoryInvalid Category = iota
	CategoryInput
	CategorySuccess
	CategoryRedirect
	CategoryTemporaryFailure
	CategoryPermanentFailure
	CategoryClientCertificateRequired
)

var categoryNames = [...]string{
	CategoryInvalid:                   "InvalidResponse",
	CategoryInput:                     "Input",
	CategorySuccess:                   "Success",
	CategoryRedirect:                  "Redirect",
	CategoryTemporaryFailure:          "TemporaryFailure",
	CategoryPermanentFailure:          "PermanentFailure",
	CategoryClientCertificateRequired: "ClientCertificateRequired",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return categoryNames[CategoryInvalid]
	}
	return categoryNames[c]
}

// Categorize maps a status code onto its category. Each category covers a
// half-open decade, so 19 is Input and 20 is Success. Anything outside
// [10, 70) is CategoryInvalid.
func Categorize(status int) Category {
	if status < 10 || status >= 70 {
		return CategoryInvalid
	}
	return Category(SimplifyStatus(status) / 10)
}

// Header is the parsed status line of a response.
type Header struct {
	Status int
	// Meta is the content type on success, the target on redirect, the
	// prompt on input, and a reason or certificate hint otherwise.
	Meta string
}

// Category returns the category of h's status code.
func (h Header) Category() Category {
	return Categorize(h.Status)
}

// ParseHeader parses a status line with the trailing CRLF already removed.
// The first two bytes must be digits; the rest, trimmed of surrounding
// whitespace, is the meta string. Lines that can't be classified return an
// *InvalidStatusError holding the offending line.
func ParseHeader(line string) (Header, error) {
	if len(line) < 2 || !isDigit(line[0]) || !isDigit(line[1]) {
		return Header{}, &InvalidStatusError{Header: line}
	}

	h := Header{
		Status: int(line[0]-'0')*10 + int(line[1]-'0'),
		Meta:   strings.TrimSpace(line[2:]),
	}
	if h.Category() == CategoryInvalid {
		return Header{}, &InvalidStatusError{Header: line}
	}
	return h, nil
}

func isDigit(b byte) bool {
	return '0' <= b && b <= '9'
}
