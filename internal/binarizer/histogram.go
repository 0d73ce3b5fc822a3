package binarizer

import (
	"errors"

	"github.com/makiuchi-d/gozxing"

	"github.com/MeKo-Tech/barscan/internal/luminance"
)

const (
	luminanceBits    = 5
	luminanceShift   = 8 - luminanceBits
	luminanceBuckets = 1 << luminanceBits
)

var errPeaksTooClose = errors.New("histogram peaks too close")

// globalHistogram derives one black point for the whole image from a
// histogram of sampled rows. Rows read through GetBlackRow get their own
// histogram and a small sharpening kernel.
type globalHistogram struct {
	src    luminance.Source
	zsrc   gozxing.LuminanceSource
	matrix *gozxing.BitMatrix
}

func newGlobalHistogram(src luminance.Source) *globalHistogram {
	return &globalHistogram{src: src, zsrc: luminance.ZXing(src)}
}

func (g *globalHistogram) GetLuminanceSource() gozxing.LuminanceSource { return g.zsrc }

func (g *globalHistogram) GetWidth() int { return g.src.Width() }

func (g *globalHistogram) GetHeight() int { return g.src.Height() }

func (g *globalHistogram) CreateBinarizer(source gozxing.LuminanceSource) gozxing.Binarizer {
	return newGlobalHistogram(luminance.FromZXing(source))
}

// GetBlackRow binarizes row y. A row without contrast reports NotFound so
// that one-dimensional readers move on to the next row.
func (g *globalHistogram) GetBlackRow(y int, row *gozxing.BitArray) (*gozxing.BitArray, error) {
	return blackRow(g.src, y, row)
}

func (g *globalHistogram) GetBlackMatrix() (*gozxing.BitMatrix, error) {
	return g.blackMatrix()
}

func (g *globalHistogram) blackMatrix() (*gozxing.BitMatrix, error) {
	if g.matrix != nil {
		return g.matrix, nil
	}
	m, err := histogramMatrix(g.src)
	if err != nil {
		return nil, err
	}
	g.matrix = m
	return m, nil
}

func blackRow(src luminance.Source, y int, row *gozxing.BitArray) (*gozxing.BitArray, error) {
	width := src.Width()
	if row == nil || row.GetSize() < width {
		row = gozxing.NewBitArray(width)
	} else {
		row.Clear()
	}

	lum, err := src.Row(y)
	if err != nil {
		return nil, gozxing.NewNotFoundException("row %d: %v", y, err)
	}
	var buckets [luminanceBuckets]int
	for _, v := range lum {
		buckets[v>>luminanceShift]++
	}
	blackPoint, err := estimateBlackPoint(buckets[:])
	if err != nil {
		return nil, gozxing.NewNotFoundException("row %d: %v", y, err)
	}

	if width < 3 {
		for x := 0; x < width; x++ {
			if int(lum[x]) < blackPoint {
				row.Set(x)
			}
		}
		return row, nil
	}

	left := int(lum[0])
	center := int(lum[1])
	for x := 1; x < width-1; x++ {
		right := int(lum[x+1])
		if (center*4-left-right)/2 < blackPoint {
			row.Set(x)
		}
		left = center
		center = right
	}
	return row, nil
}

// histogramMatrix samples four rows at 1/5 intervals, using the middle three
// fifths of each, and thresholds every pixel against the resulting black point.
func histogramMatrix(src luminance.Source) (*gozxing.BitMatrix, error) {
	width, height := src.Width(), src.Height()
	lum := src.Matrix()

	var buckets [luminanceBuckets]int
	for y := 1; y < 5; y++ {
		offset := (height * y / 5) * width
		right := width * 4 / 5
		for x := width / 5; x < right; x++ {
			buckets[lum[offset+x]>>luminanceShift]++
		}
	}
	blackPoint, err := estimateBlackPoint(buckets[:])
	if err != nil {
		return nil, err
	}

	matrix, err := gozxing.NewBitMatrix(width, height)
	if err != nil {
		return nil, err
	}
	for y := 0; y < height; y++ {
		offset := y * width
		for x := 0; x < width; x++ {
			if int(lum[offset+x]) < blackPoint {
				matrix.Set(x, y)
			}
		}
	}
	return matrix, nil
}

// estimateBlackPoint finds the two dominant histogram peaks and returns the
// luminance at the deepest valley between them.
func estimateBlackPoint(buckets []int) (int, error) {
	numBuckets := len(buckets)
	maxBucketCount := 0
	firstPeak := 0
	firstPeakSize := 0
	for x := 0; x < numBuckets; x++ {
		if buckets[x] > firstPeakSize {
			firstPeak = x
			firstPeakSize = buckets[x]
		}
		if buckets[x] > maxBucketCount {
			maxBucketCount = buckets[x]
		}
	}

	// Favour peaks far from the first one.
	secondPeak := 0
	secondPeakScore := 0
	for x := 0; x < numBuckets; x++ {
		dist := x - firstPeak
		score := buckets[x] * dist * dist
		if score > secondPeakScore {
			secondPeak = x
			secondPeakScore = score
		}
	}

	if firstPeak > secondPeak {
		firstPeak, secondPeak = secondPeak, firstPeak
	}

	if secondPeak-firstPeak <= numBuckets/16 {
		return 0, errPeaksTooClose
	}

	bestValley := secondPeak - 1
	bestValleyScore := -1
	for x := secondPeak - 1; x > firstPeak; x-- {
		fromFirst := x - firstPeak
		score := fromFirst * fromFirst * (secondPeak - x) * (maxBucketCount - buckets[x])
		if score > bestValleyScore {
			bestValley = x
			bestValleyScore = score
		}
	}

	return bestValley << luminanceShift, nil
}
