package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVendorName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "ACME", "acme"},
		{"strips single suffix", "Acme Corp", "acme"},
		{"strips inc with period", "Acme Inc.", "acme"},
		{"strips repeated suffixes", "Acme Corp Inc", "acme"},
		{"strips llc", "Bright Water LLC", "bright water"},
		{"folds accents", "Café Río", "cafe rio"},
		{"collapses whitespace", "Acme    Global   Co", "acme global"},
		{"strips punctuation", "O'Brien & Sons, Ltd.", "o brien sons"},
		{"suffix only name is preserved", "Inc", "inc"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeVendorName(tt.input))
		})
	}
}

func TestNormalizeVendorName_Idempotent(t *testing.T) {
	inputs := []string{
		"Acme Corp",
		"Café Río Incorporated",
		"Bright & Early, LLC",
		"O'Brien & Sons, Ltd.",
		"Inc",
	}
	for _, in := range inputs {
		once := NormalizeVendorName(in)
		twice := NormalizeVendorName(once)
		assert.Equal(t, once, twice, "normalize(%q) must be idempotent", in)
	}
}

func TestFoldAccents(t *testing.T) {
	assert.Equal(t, "cafe", FoldAccents("café"))
	assert.Equal(t, "uber", FoldAccents("über"))
	assert.Equal(t, "plain", FoldAccents("plain"))
}

func TestNormalizeTaxID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"12-3456789", "123456789"},
		{"12 345 6789", "123456789"},
		{"ab-123", "AB123"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeTaxID(tt.input))
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"abbreviates street", "123 Main Street", "123 main st"},
		{"abbreviates avenue", "500 Fifth Avenue", "500 fifth ave"},
		{"abbreviates suite", "1 Elm Road Suite 200", "1 elm rd ste 200"},
		{"strips punctuation", "123 Main St., Apt 4", "123 main st apt 4"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.input))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5551234567", NormalizePhone("(555) 123-4567"))
	assert.Equal(t, "15551234567", NormalizePhone("+1 555 123 4567"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", NormalizeEmail("  A@B.COM "))
}

func TestRegistry(t *testing.T) {
	t.Run("built-in normalizers are registered", func(t *testing.T) {
		for _, name := range []string{"nvendor", "ntaxid", "naddress", "nphone", "nemail", "lowercase", "trim"} {
			fn, ok := Get(name)
			require.True(t, ok, "normalizer %q should be registered", name)
			require.NotNil(t, fn)
		}
	})

	t.Run("unknown normalizer passes value through", func(t *testing.T) {
		assert.Equal(t, "value", Apply("value", "does_not_exist"))
	})

	t.Run("chain applies in order", func(t *testing.T) {
		assert.Equal(t, "acme", ApplyChain("  Acme Corp  ", "trim", "nvendor"))
	})

	t.Run("custom normalizer", func(t *testing.T) {
		Register("reverse_noop", func(s string) string { return s })
		out := Apply("abc", "reverse_noop")
		assert.Equal(t, "abc", out)
	})
}
