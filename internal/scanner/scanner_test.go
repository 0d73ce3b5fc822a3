package scanner

import (
	"bytes"
	"errors"
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/binarizer"
	"github.com/MeKo-Tech/barscan/internal/luminance"
	"github.com/MeKo-Tech/barscan/internal/testutil"
)

// countingDecoder succeeds on the succeedOn-th call and records the colour
// of pixel (5,5) in every bitmap it sees.
type countingDecoder struct {
	calls     int
	succeedOn int
	darkProbe []bool
}

func (d *countingDecoder) Decode(bmp *gozxing.BinaryBitmap, _ barcode.Hints) (barcode.Result, error) {
	d.calls++
	m, err := bmp.GetBlackMatrix()
	if err != nil {
		return barcode.Result{}, err
	}
	d.darkProbe = append(d.darkProbe, m.Get(5, 5))
	if d.calls == d.succeedOn {
		return barcode.Result{Text: "fake", Format: barcode.FormatQR}, nil
	}
	return barcode.Result{}, barcode.ErrNotFound
}

type recordingObserver struct {
	mu       sync.Mutex
	attempts []Strategy
	errs     []error
	scans    int
	lastErr  error
}

func (o *recordingObserver) ObserveAttempt(s Strategy, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts = append(o.attempts, s)
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) ObserveScan(_ Result, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scans++
	o.lastErr = err
}

func twoTone() luminance.PixelBuffer {
	img := testutil.BlankImage(64, 64, color.White)
	for y := 0; y < 64; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return testutil.Pixels(img)
}

func TestStrategies_FixedOrder(t *testing.T) {
	want := []string{
		"original+hybrid",
		"original+global-histogram",
		"inverted+hybrid",
		"inverted+global-histogram",
	}
	got := Strategies()
	require.Len(t, got, 4)
	for i, s := range got {
		assert.Equal(t, want[i], s.String())
	}

	got[0] = Strategy{Inverted, binarizer.GlobalHistogram}
	assert.Equal(t, "original+hybrid", Strategies()[0].String(), "returned slice is a copy")
}

func TestScan_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		buf  luminance.PixelBuffer
	}{
		{"zero dimensions", luminance.PixelBuffer{}},
		{"negative width", luminance.PixelBuffer{Width: -1, Height: 2, Data: nil}},
		{"length mismatch", luminance.PixelBuffer{Width: 10, Height: 10, Data: make([]byte, 399)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Scan(tt.buf)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.NotErrorIs(t, err, ErrAllStrategiesExhausted)
			assert.Equal(t, KindInvalidInput, KindOf(err))
		})
	}
}

func TestScan_QRCode(t *testing.T) {
	buf := testutil.Pixels(testutil.QRImage(t, "HELLO-WORLD", 200))

	res, err := New().Scan(buf)
	require.NoError(t, err)
	assert.Equal(t, "HELLO-WORLD", res.Text)
	assert.Equal(t, "QR_CODE", res.Format.String())
	assert.Equal(t, Strategy{Original, binarizer.Hybrid}, res.Strategy)
	assert.Equal(t, 1, res.Attempts)
}

func TestScan_InvertedQRCode(t *testing.T) {
	img := testutil.Invert(testutil.QRImage(t, "HELLO-WORLD", 200))

	res, err := New().ScanImage(img)
	require.NoError(t, err)
	assert.Equal(t, "HELLO-WORLD", res.Text)
	assert.Equal(t, barcode.FormatQR, res.Format)
	assert.Equal(t, Inverted, res.Strategy.Polarity)
	assert.GreaterOrEqual(t, res.Attempts, 3)
}

func TestScan_EAN13(t *testing.T) {
	buf := testutil.Pixels(testutil.EAN13Image(t, "5901234123457"))

	res, err := New().Scan(buf)
	require.NoError(t, err)
	assert.Equal(t, "5901234123457", res.Text)
	assert.Len(t, res.Text, 13)
	assert.Equal(t, "EAN_13", res.Format.String())
}

func TestScan_Exhausted(t *testing.T) {
	tests := []struct {
		name string
		buf  luminance.PixelBuffer
	}{
		{"blank white", testutil.Pixels(testutil.BlankImage(120, 120, color.White))},
		{"blank black", testutil.Pixels(testutil.BlankImage(120, 120, color.Black))},
		{"noise 50x50", testutil.Pixels(testutil.NoiseImage(50, 50, 1234))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Scan(tt.buf)
			require.ErrorIs(t, err, ErrAllStrategiesExhausted)
			assert.Equal(t, "could not decode using any strategy", err.Error())

			var ex *ExhaustedError
			require.ErrorAs(t, err, &ex)
			attempts := ex.Attempts()
			require.Len(t, attempts, 4)
			for i, a := range attempts {
				assert.Equal(t, strategies[i], a.Strategy)
				assert.NotEqual(t, KindUnknown, a.Kind(), a.Error())
			}

			// Per-attempt causes stay behind the aggregate.
			assert.NotErrorIs(t, err, ErrSymbolNotFound)
			assert.NotErrorIs(t, err, ErrBinarizationFailed)
		})
	}
}

func TestScan_BlackImageBinarizationFailures(t *testing.T) {
	// Too small for the hybrid block grid, so both binarizers use the
	// histogram and a flat black image has no second peak.
	buf := testutil.Pixels(testutil.BlankImage(30, 30, color.Black))

	_, err := New().Scan(buf)
	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	attempts := ex.Attempts()
	assert.Equal(t, KindBinarizationFailed, attempts[0].Kind())
	assert.Equal(t, KindBinarizationFailed, attempts[1].Kind())
}

func TestScan_Diagnostics(t *testing.T) {
	buf := testutil.Pixels(testutil.BlankImage(60, 60, color.White))

	_, err := New(WithDiagnostics(true)).Scan(buf)
	require.ErrorIs(t, err, ErrAllStrategiesExhausted)
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "could not decode using any strategy: "))
	for _, s := range strategies {
		assert.Contains(t, msg, s.String())
	}
}

func TestScan_AllStrategiesAttemptedInOrder(t *testing.T) {
	dec := &countingDecoder{succeedOn: 4}
	s := New(WithDecoderFactory(func() barcode.Decoder { return dec }))

	res, err := s.Scan(twoTone())
	require.NoError(t, err)
	assert.Equal(t, 4, dec.calls)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, Strategy{Inverted, binarizer.GlobalHistogram}, res.Strategy)
	assert.Equal(t, barcode.FormatQR, res.Format)

	// (5,5) is black in the original and white once inverted.
	assert.Equal(t, []bool{true, true, false, false}, dec.darkProbe)
}

func TestScan_StopsAtFirstSuccess(t *testing.T) {
	dec := &countingDecoder{succeedOn: 2}
	res, err := New(WithDecoderFactory(func() barcode.Decoder { return dec })).Scan(twoTone())
	require.NoError(t, err)
	assert.Equal(t, 2, dec.calls)
	assert.Equal(t, Strategy{Original, binarizer.GlobalHistogram}, res.Strategy)
}

func TestScan_DecoderPerCall(t *testing.T) {
	var built int
	factory := func() barcode.Decoder {
		built++
		return &countingDecoder{succeedOn: 1}
	}
	s := New(WithDecoderFactory(factory))
	for i := 0; i < 3; i++ {
		_, err := s.Scan(twoTone())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, built)
}

func TestScan_Idempotent(t *testing.T) {
	buf := testutil.Pixels(testutil.QRImage(t, "same every time", 200))
	orig := append([]byte(nil), buf.Data...)

	s := New()
	a, errA := s.Scan(buf)
	b, errB := s.Scan(buf)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
	assert.Equal(t, orig, buf.Data, "pixel buffer must not be mutated")
}

func TestScan_Concurrent(t *testing.T) {
	s := New()
	inputs := []struct {
		text string
		buf  luminance.PixelBuffer
	}{
		{"alpha", testutil.Pixels(testutil.QRImage(t, "alpha", 200))},
		{"beta", testutil.Pixels(testutil.Invert(testutil.QRImage(t, "beta", 200)))},
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		in := inputs[i%len(inputs)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Scan(in.buf)
			if err != nil {
				errs <- err
				return
			}
			if res.Text != in.text {
				errs <- errors.New("got " + res.Text + ", want " + in.text)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestScan_Observer(t *testing.T) {
	obs := &recordingObserver{}
	_, err := New(WithObserver(obs)).Scan(testutil.Pixels(testutil.BlankImage(60, 60, color.White)))
	require.Error(t, err)

	assert.Equal(t, Strategies(), obs.attempts)
	for _, e := range obs.errs {
		assert.Error(t, e)
	}
	assert.Equal(t, 1, obs.scans)
	assert.ErrorIs(t, obs.lastErr, ErrAllStrategiesExhausted)
}

func TestScan_LogsFailedStrategies(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := New(WithLogger(logger)).Scan(testutil.Pixels(testutil.BlankImage(60, 60, color.White)))
	require.Error(t, err)

	out := buf.String()
	assert.Equal(t, 4, strings.Count(out, `"msg":"strategy failed"`))
	assert.Contains(t, out, `"strategy":"inverted+global-histogram"`)
}

func TestWithHints(t *testing.T) {
	formats := []barcode.Format{barcode.FormatQR}
	s := New(WithHints(barcode.Hints{PossibleFormats: formats}))
	formats[0] = barcode.FormatEAN8

	h := s.Hints()
	assert.False(t, h.TryHarder)
	assert.Equal(t, []barcode.Format{barcode.FormatQR}, h.PossibleFormats)

	// EAN-13 symbol is invisible when only QR is allowed.
	_, err := s.Scan(testutil.Pixels(testutil.EAN13Image(t, "5901234123457")))
	assert.ErrorIs(t, err, ErrAllStrategiesExhausted)
}

func TestScanImage_Nil(t *testing.T) {
	_, err := New().ScanImage(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{ErrInvalidInput, KindInvalidInput},
		{&ExhaustedError{}, KindExhausted},
		{ErrBinarizationFailed, KindBinarizationFailed},
		{barcode.ErrCorrupt, KindSymbolCorrupt},
		{barcode.ErrNotFound, KindSymbolNotFound},
		{errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err))
	}
}
