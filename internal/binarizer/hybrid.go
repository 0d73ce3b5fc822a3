package binarizer

import (
	"github.com/makiuchi-d/gozxing"

	"github.com/MeKo-Tech/barscan/internal/luminance"
)

const (
	blockSizePower   = 3
	blockSize        = 1 << blockSizePower
	blockSizeMask    = blockSize - 1
	minimumDimension = blockSize * 5
	minDynamicRange  = 24
)

// hybrid thresholds each 8x8 block against the mean black point of the 5x5
// blocks around it. Sources smaller than 40px on either side fall back to the
// global histogram matrix. Rows always use the global histogram method.
type hybrid struct {
	globalHistogram
}

func newHybrid(src luminance.Source) *hybrid {
	return &hybrid{globalHistogram: *newGlobalHistogram(src)}
}

func (h *hybrid) CreateBinarizer(source gozxing.LuminanceSource) gozxing.Binarizer {
	return newHybrid(luminance.FromZXing(source))
}

func (h *hybrid) GetBlackMatrix() (*gozxing.BitMatrix, error) {
	return h.blackMatrix()
}

func (h *hybrid) blackMatrix() (*gozxing.BitMatrix, error) {
	if h.matrix != nil {
		return h.matrix, nil
	}
	width, height := h.src.Width(), h.src.Height()
	if width < minimumDimension || height < minimumDimension {
		return h.globalHistogram.blackMatrix()
	}

	lum := h.src.Matrix()
	subWidth := width >> blockSizePower
	if width&blockSizeMask != 0 {
		subWidth++
	}
	subHeight := height >> blockSizePower
	if height&blockSizeMask != 0 {
		subHeight++
	}
	blackPoints := calculateBlackPoints(lum, subWidth, subHeight, width, height)

	matrix, err := gozxing.NewBitMatrix(width, height)
	if err != nil {
		return nil, err
	}
	calculateThresholdForBlock(lum, subWidth, subHeight, width, height, blackPoints, matrix)
	h.matrix = matrix
	return matrix, nil
}

func calculateThresholdForBlock(lum []byte, subWidth, subHeight, width, height int,
	blackPoints [][]int, matrix *gozxing.BitMatrix) {
	maxYOffset := height - blockSize
	maxXOffset := width - blockSize
	for y := 0; y < subHeight; y++ {
		yoffset := min(y<<blockSizePower, maxYOffset)
		top := clampBlock(y, subHeight-3)
		for x := 0; x < subWidth; x++ {
			xoffset := min(x<<blockSizePower, maxXOffset)
			left := clampBlock(x, subWidth-3)
			sum := 0
			for z := -2; z <= 2; z++ {
				bp := blackPoints[top+z]
				sum += bp[left-2] + bp[left-1] + bp[left] + bp[left+1] + bp[left+2]
			}
			thresholdBlock(lum, xoffset, yoffset, sum/25, width, matrix)
		}
	}
}

// clampBlock keeps a 5x5 neighbourhood centred on v inside the block grid.
func clampBlock(v, hi int) int {
	if v < 2 {
		return 2
	}
	if v > hi {
		return hi
	}
	return v
}

func thresholdBlock(lum []byte, xoffset, yoffset, threshold, stride int, matrix *gozxing.BitMatrix) {
	for y, offset := 0, yoffset*stride+xoffset; y < blockSize; y, offset = y+1, offset+stride {
		for x := 0; x < blockSize; x++ {
			if int(lum[offset+x]) <= threshold {
				matrix.Set(xoffset+x, yoffset+y)
			}
		}
	}
}

// calculateBlackPoints computes one black point per block. Low contrast
// blocks are assumed to be background and borrow from their neighbours.
func calculateBlackPoints(lum []byte, subWidth, subHeight, width, height int) [][]int {
	maxYOffset := height - blockSize
	maxXOffset := width - blockSize
	blackPoints := make([][]int, subHeight)
	for i := range blackPoints {
		blackPoints[i] = make([]int, subWidth)
	}

	for y := 0; y < subHeight; y++ {
		yoffset := min(y<<blockSizePower, maxYOffset)
		for x := 0; x < subWidth; x++ {
			xoffset := min(x<<blockSizePower, maxXOffset)
			sum := 0
			lo, hi := 0xFF, 0
			for yy, offset := 0, yoffset*width+xoffset; yy < blockSize; yy, offset = yy+1, offset+width {
				for xx := 0; xx < blockSize; xx++ {
					p := int(lum[offset+xx])
					sum += p
					lo = min(lo, p)
					hi = max(hi, p)
				}
				// Contrast found; finish the sum without tracking extremes.
				if hi-lo > minDynamicRange {
					for yy, offset = yy+1, offset+width; yy < blockSize; yy, offset = yy+1, offset+width {
						for xx := 0; xx < blockSize; xx++ {
							sum += int(lum[offset+xx])
						}
					}
				}
			}

			average := sum >> (blockSizePower * 2)
			if hi-lo <= minDynamicRange {
				average = lo / 2
				if y > 0 && x > 0 {
					neighbour := (blackPoints[y-1][x] + 2*blackPoints[y][x-1] + blackPoints[y-1][x-1]) / 4
					if lo < neighbour {
						average = neighbour
					}
				}
			}
			blackPoints[y][x] = average
		}
	}
	return blackPoints
}
