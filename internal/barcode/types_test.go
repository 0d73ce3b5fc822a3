package barcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"qr", FormatQR},
		{"QR_CODE", FormatQR},
		{"data-matrix", FormatDataMatrix},
		{"DATA_MATRIX", FormatDataMatrix},
		{"aztec", FormatAztec},
		{"PDF_417", FormatPDF417},
		{"code128", FormatCode128},
		{"Code-39", FormatCode39},
		{"ean8", FormatEAN8},
		{"EAN_13", FormatEAN13},
		{"upc-a", FormatUPCA},
		{"UPC_E", FormatUPCE},
		{"i2/5", FormatITF},
		{" codabar ", FormatCodabar},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFormat("maxicode")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormat_StringRoundTrip(t *testing.T) {
	for _, f := range AllFormats {
		got, err := ParseFormat(f.String())
		require.NoError(t, err, f.String())
		assert.Equal(t, f, got)

		_, ok := ZXingFormat(f)
		assert.True(t, ok, f.String())
	}
	assert.Equal(t, "UNKNOWN", FormatUnknown.String())
}

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats([]string{"qr", "", " ean13"})
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatQR, FormatEAN13}, got)

	_, err = ParseFormats([]string{"qr", "nope"})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = ParseFormats([]string{"qr", "pdf417"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormat_Decodable(t *testing.T) {
	for _, f := range AllFormats {
		assert.True(t, f.Decodable(), f.String())
	}
	assert.False(t, FormatPDF417.Decodable())
	assert.False(t, FormatUnknown.Decodable())
	assert.NotContains(t, dispatchOrder(Hints{PossibleFormats: []Format{FormatQR, FormatPDF417}}), FormatPDF417)
}

func TestDefaultHints(t *testing.T) {
	h := DefaultHints()
	assert.True(t, h.TryHarder)
	assert.Len(t, h.PossibleFormats, 10)
	assert.False(t, h.Allows(FormatCodabar))
	assert.False(t, h.Allows(FormatPDF417))
	for _, f := range h.PossibleFormats {
		assert.True(t, f.Decodable(), f.String())
	}
	assert.True(t, h.Allows(FormatQR))
	assert.True(t, Hints{}.Allows(FormatCodabar))
}

func TestDispatchOrder(t *testing.T) {
	tests := []struct {
		name  string
		hints Hints
		want  []Format
	}{
		{
			name:  "matrix first when trying harder",
			hints: Hints{TryHarder: true, PossibleFormats: []Format{FormatEAN13, FormatQR}},
			want:  []Format{FormatQR, FormatEAN13},
		},
		{
			name:  "linear first otherwise",
			hints: Hints{PossibleFormats: []Format{FormatQR, FormatEAN13}},
			want:  []Format{FormatEAN13, FormatQR},
		},
		{
			name:  "upc-a folded into ean-13",
			hints: Hints{PossibleFormats: []Format{FormatUPCA, FormatEAN13}},
			want:  []Format{FormatEAN13},
		},
		{
			name:  "upc-a alone",
			hints: Hints{PossibleFormats: []Format{FormatUPCA}},
			want:  []Format{FormatUPCA},
		},
		{
			name:  "empty means everything",
			hints: Hints{TryHarder: true},
			want: []Format{
				FormatQR, FormatDataMatrix, FormatAztec,
				FormatEAN13, FormatEAN8, FormatUPCE, FormatCode39,
				FormatCode128, FormatITF, FormatCodabar,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dispatchOrder(tt.hints))
		})
	}
}

func TestFormat_Text(t *testing.T) {
	b, err := FormatEAN8.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "EAN_8", string(b))

	var f Format
	require.NoError(t, f.UnmarshalText([]byte("itf")))
	assert.Equal(t, FormatITF, f)
	assert.Error(t, f.UnmarshalText([]byte("bogus")))
}
