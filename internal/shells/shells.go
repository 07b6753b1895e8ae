// Package shells groups diffusion gradient strengths into shells and derives
// the acquisition label used to tag every shell-restricted derivative.
package shells

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
)

// DefaultTolerance is how far above the requested maximum a shell may lie
// and still be kept.
const DefaultTolerance = 50

// ErrNoShells is returned when no weighted shell survives the filters.
var ErrNoShells = errors.New("no diffusion-weighted shells")

// DetectShells rounds every b-value to the nearest 100, drops the unweighted
// shell and every shell above maxBval+tolerance, and returns the remaining
// shells in ascending order together with the maximum that was honored.
// A nil maxBval means "use the observed maximum".
func DetectShells(bvals []float64, maxBval *float64, tolerance float64) ([]int, int, error) {
	seen := make(map[int]bool)
	var shells []int
	for _, b := range bvals {
		rounded := int(math.Round(b/100) * 100)
		if rounded == 0 || seen[rounded] {
			continue
		}
		seen[rounded] = true
		shells = append(shells, rounded)
	}
	slices.Sort(shells)

	if len(shells) == 0 {
		return nil, 0, ErrNoShells
	}

	effectiveMax := shells[len(shells)-1]
	if maxBval != nil {
		limit := *maxBval + tolerance
		kept := shells[:0]
		for _, s := range shells {
			if float64(s) <= limit {
				kept = append(kept, s)
			}
		}
		shells = kept
		effectiveMax = int(math.Round(*maxBval))
	}

	if len(shells) == 0 {
		return nil, 0, fmt.Errorf("%w at or below b=%d", ErrNoShells, effectiveMax)
	}
	return shells, effectiveMax, nil
}

// GenAcqLabel formats the acquisition label of shell-restricted outputs.
func GenAcqLabel(effectiveMax int) string {
	return "shell" + strconv.Itoa(effectiveMax)
}

// ReadBvals parses a whitespace-separated b-value table.
func ReadBvals(r io.Reader) ([]float64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	var bvals []float64
	for scanner.Scan() {
		v, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid b-value %q: %w", scanner.Text(), err)
		}
		bvals = append(bvals, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read b-values: %w", err)
	}
	return bvals, nil
}

// ReadBvalFile is ReadBvals over a file on disk.
func ReadBvalFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open b-value file: %w", err)
	}
	defer f.Close()
	return ReadBvals(f)
}
