// Package fingerprint computes identity and comparison keys for image files:
// a cryptographic content hash for exact-duplicate detection and 64-bit
// perceptual hashes for near-duplicate detection.
package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sort"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// PerceptualHash computes a 64-bit DCT-based perceptual hash (pHash) of an
// image. Visually similar images produce hashes with a low Hamming distance;
// the hash is robust against recompression and resizing.
func PerceptualHash(imageData []byte) (uint64, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return perceptualHash(img), nil
}

// DifferenceHash computes a 64-bit gradient hash (dHash) of an image.
// Cheaper than PerceptualHash, used as a secondary signal in reports.
func DifferenceHash(imageData []byte) (uint64, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return differenceHash(img), nil
}

// HammingDistance counts the differing bits between two 64-bit hashes.
func HammingDistance(a, b uint64) int {
	xor := a ^ b
	distance := 0
	for xor != 0 {
		distance++
		xor &= xor - 1 // Clear lowest set bit
	}
	return distance
}

// Similar returns true if two hashes are within the given Hamming distance.
func Similar(a, b uint64, threshold int) bool {
	return HammingDistance(a, b) <= threshold
}

// HexHash formats a 64-bit hash as a 16-character hex string.
func HexHash(hash uint64) string {
	return fmt.Sprintf("%016x", hash)
}

func perceptualHash(img image.Image) uint64 {
	// Downsample to 32x32, grayscale, then keep the low-frequency corner of
	// the DCT. Bits are set against the median coefficient so the hash is
	// invariant to global brightness and contrast.
	gray := grayscale(scale(img, 32, 32))
	dct := dct2d(gray)

	lowFreq := make([]float64, 0, 64)
	for u := range 8 {
		for v := range 8 {
			if u == 0 && v == 0 {
				continue // Skip DC component
			}
			lowFreq = append(lowFreq, dct[u][v])
		}
	}
	lowFreq = append(lowFreq, dct[8][0]) // pad back to 64 coefficients

	median := median(lowFreq)

	var hash uint64
	for i, v := range lowFreq {
		if v > median {
			hash |= 1 << (63 - i)
		}
	}
	return hash
}

func differenceHash(img image.Image) uint64 {
	// 9x8 grid gives 8 horizontal comparisons per row, 64 bits total.
	gray := grayscale(scale(img, 9, 8))

	var hash uint64
	bit := 63
	for y := range 8 {
		for x := range 8 {
			if gray[y][x] > gray[y][x+1] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

func scale(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// grayscale converts an image to row-major luma values (0-255).
func grayscale(img *image.RGBA) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, height)
	for y := range height {
		gray[y] = make([]float64, width)
		for x := range width {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			gray[y][x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return gray
}

// dct2d computes the two-dimensional DCT-II of a square grayscale grid.
func dct2d(gray [][]float64) [][]float64 {
	size := len(gray)
	out := make([][]float64, size)
	for i := range out {
		out[i] = make([]float64, size)
	}

	cosTable := make([][]float64, size)
	for i := range cosTable {
		cosTable[i] = make([]float64, size)
		for j := range size {
			cosTable[i][j] = math.Cos(math.Pi * float64(i) * (2*float64(j) + 1) / (2 * float64(size)))
		}
	}

	for u := range size {
		for v := range size {
			var sum float64
			for y := range size {
				for x := range size {
					sum += gray[y][x] * cosTable[u][y] * cosTable[v][x]
				}
			}
			out[u][v] = sum
		}
	}
	return out
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
