package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"formatted US number", "(512) 555-0182", "5125550182"},
		{"dashes", "512-555-0182", "5125550182"},
		{"country prefix stripped", "+1 512 555 0182", "5125550182"},
		{"eleven digits not starting with 1", "25125550182", "25125550182"},
		{"already bare", "5125550182", "5125550182"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestNormalizeBusinessTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"strips llc", "Joe's Plumbing LLC", "joes plumbing"},
		{"strips inc with period", "Acme Widgets, Inc.", "acme widgets"},
		{"strips stacked suffixes", "Sunrise Holdings Co., LLC", "sunrise holdings"},
		{"keeps interior words", "Incorporated Village Deli", "incorporated village deli"},
		{"ampersand becomes space", "Smith & Sons Roofing", "smith sons roofing"},
		{"hyphen becomes space", "Quick-Stop Market", "quick stop market"},
		{"collapses whitespace", "  Big   Sky  Bakery  ", "big sky bakery"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeBusinessTitle(tt.input))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"street abbreviation", "123 Main Street", "123 main st"},
		{"already abbreviated", "123 Main St.", "123 main st"},
		{"directional and suite", "500 North Lamar Boulevard, Suite 200", "500 n lamar blvd ste 200"},
		{"unit marker kept", "77 Oak Ave #4", "77 oak ave #4"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.input))
		})
	}
}

func TestNormalizeState(t *testing.T) {
	assert.Equal(t, "TX", NormalizeState(" tx "))
	assert.Equal(t, "CA", NormalizeState("Ca"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "bob@broker.com", NormalizeEmail("  Bob@Broker.COM "))
}

func TestApplyChain(t *testing.T) {
	result := ApplyChain("  (512) 555-0182 ", "trim", "nphone")
	assert.Equal(t, "5125550182", result)
}

func TestApplyUnknownNormalizerReturnsValue(t *testing.T) {
	assert.Equal(t, "unchanged", Apply("unchanged", "does_not_exist"))
}

func TestGetRegisteredNormalizers(t *testing.T) {
	for _, name := range []string{"lowercase", "trim", "digits_only", "nphone", "nemail", "ntitle", "naddress", "nstate"} {
		fn, ok := Get(name)
		assert.True(t, ok, name)
		assert.NotNil(t, fn, name)
	}

	_, ok := Get("does_not_exist")
	assert.False(t, ok)
}
