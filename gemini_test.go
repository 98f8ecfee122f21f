package gemini

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSimplifyStatus(t *testing.T) {
	tests := []struct {
		ComplexStatus int
		SimpleStatus  int
	}{
		{10, 10},
		{20, 20},
		{21, 20},
		{44, 40},
		{59, 50},
	}

	for _, tt := range tests {
		result := SimplifyStatus(tt.ComplexStatus)
		if result != tt.SimpleStatus {
			t.Errorf("Expected the simplified status of %d to be %d, got %d instead", tt.ComplexStatus, tt.SimpleStatus, result)
		}
	}
}

func TestIsStatusValid(t *testing.T) {
	for _, status := range []int{10, 11, 20, 31, 44, 53, 59, 65} {
		if !IsStatusValid(status) {
			t.Errorf("expected %d to be valid", status)
		}
	}
	for _, status := range []int{0, 9, 19, 22, 45, 66, 70} {
		if IsStatusValid(status) {
			t.Errorf("expected %d to be invalid", status)
		}
	}
}

func TestCategorizeDecades(t *testing.T) {
	want := map[int]Category{
		1: CategoryInput,
		2: CategorySuccess,
		3: CategoryRedirect,
		4: CategoryTemporaryFailure,
		5: CategoryPermanentFailure,
		6: CategoryClientCertificateRequired,
	}

	for code := 0; code < 100; code++ {
		expected, ok := want[code/10]
		if !ok {
			expected = CategoryInvalid
		}
		if got := Categorize(code); got != expected {
			t.Errorf("Categorize(%d) = %v, expected %v", code, got, expected)
		}
		if Categorize(code) != Categorize(SimplifyStatus(code)) {
			t.Errorf("Categorize(%d) differs from its simplified status %d", code, SimplifyStatus(code))
		}
	}
}

func TestParseHeaderAllCodes(t *testing.T) {
	for code := 0; code < 100; code++ {
		line := fmt.Sprintf("%02d   some meta\t", code)
		h, err := ParseHeader(line)

		if code < 10 || code >= 70 {
			var invalid *InvalidStatusError
			if !errors.As(err, &invalid) {
				t.Errorf("%q: expected InvalidStatusError, got %v", line, err)
			} else if invalid.Header != line {
				t.Errorf("%q: error holds %q", line, invalid.Header)
			}
			continue
		}

		if err != nil {
			t.Errorf("%q: unexpected error: %v", line, err)
			continue
		}
		if diff := cmp.Diff(Header{Status: code, Meta: "some meta"}, h); diff != "" {
			t.Errorf("%q: (-want +got)\n%s", line, diff)
		}
	}
}

func TestParseHeaderBoundaries(t *testing.T) {
	tests := []struct {
		line     string
		category Category
	}{
		{"09 x", CategoryInvalid},
		{"10 x", CategoryInput},
		{"19 x", CategoryInput},
		{"20 x", CategorySuccess},
		{"29 x", CategorySuccess},
		{"30 x", CategoryRedirect},
		{"39 x", CategoryRedirect},
		{"40 x", CategoryTemporaryFailure},
		{"49 x", CategoryTemporaryFailure},
		{"50 x", CategoryPermanentFailure},
		{"59 x", CategoryPermanentFailure},
		{"60 x", CategoryClientCertificateRequired},
		{"69 x", CategoryClientCertificateRequired},
		{"70 x", CategoryInvalid},
	}

	for _, tc := range tests {
		h, err := ParseHeader(tc.line)
		if tc.category == CategoryInvalid {
			if !errors.Is(err, ErrInvalidStatus) {
				t.Errorf("%q: expected ErrInvalidStatus, got %v", tc.line, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.line, err)
			continue
		}
		if h.Category() != tc.category {
			t.Errorf("%q: got %v, expected %v", tc.line, h.Category(), tc.category)
		}
		if h.Meta != "x" {
			t.Errorf("%q: got meta %q", tc.line, h.Meta)
		}
	}
}

func TestParseHeaderMalformed(t *testing.T) {
	for _, line := range []string{"", "2", "AA meta", "2a text/gemini", "a2 text/gemini", "+5 x", " 20 x", "é0 x"} {
		if _, err := ParseHeader(line); !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("%q: expected ErrInvalidStatus, got %v", line, err)
		}
	}
}

func TestParseHeaderMeta(t *testing.T) {
	tests := []struct {
		line     string
		expected Header
	}{
		{"20 text/gemini", Header{20, "text/gemini"}},
		{"20", Header{20, ""}},
		{"20 ", Header{20, ""}},
		{"20text/plain", Header{20, "text/plain"}},
		{"31  gemini://example.org/new  ", Header{31, "gemini://example.org/new"}},
		{"60 certificate please", Header{60, "certificate please"}},
	}

	for _, tc := range tests {
		h, err := ParseHeader(tc.line)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.line, err)
			continue
		}
		if diff := cmp.Diff(tc.expected, h); diff != "" {
			t.Errorf("%q: (-want +got)\n%s", tc.line, diff)
		}
	}
}

func TestCategoryString(t *testing.T) {
	if got := CategoryTemporaryFailure.String(); got != "TemporaryFailure" {
		t.Errorf("got %q", got)
	}
	if got := Category(42).String(); got != "InvalidResponse" {
		t.Errorf("got %q", got)
	}
}
