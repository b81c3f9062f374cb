package disk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/downfa11-org/go-kvs/util"
)

// SegmentExt is the file extension of every log segment.
const SegmentExt = ".log"

// ErrInvalidSegmentName is returned in strict mode for a segment file whose
// stem is not a canonical unsigned integer.
var ErrInvalidSegmentName = errors.New("invalid segment name")

// LogPath returns the path of the segment with generation gen inside dir.
func LogPath(dir string, gen uint64) string {
	return filepath.Join(dir, strconv.FormatUint(gen, 10)+SegmentExt)
}

// ParseGeneration extracts the generation from a segment file name.
// Only canonical decimal stems are accepted so that LogPath(gen) names the same file.
func ParseGeneration(name string) (uint64, bool) {
	stem, ok := strings.CutSuffix(name, SegmentExt)
	if !ok || stem == "" {
		return 0, false
	}
	gen, err := strconv.ParseUint(stem, 10, 64)
	if err != nil || strconv.FormatUint(gen, 10) != stem {
		return 0, false
	}
	return gen, true
}

// SortedGenerations lists the segment generations in dir in ascending order.
// Files without the segment extension are ignored. A segment-looking file with a
// malformed stem is skipped with a warning, or rejected when strict is set.
func SortedGenerations(dir string, strict bool) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, types.IOError("list segments", err)
	}

	gens := make([]uint64, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, SegmentExt) {
			continue
		}
		gen, ok := ParseGeneration(name)
		if !ok {
			if strict {
				return nil, fmt.Errorf("%w: %s", ErrInvalidSegmentName, filepath.Join(dir, name))
			}
			util.Warn("skipping segment with malformed name %s", filepath.Join(dir, name))
			continue
		}
		gens = append(gens, gen)
	}

	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	return gens, nil
}

// RemoveSegment deletes the segment file of gen. A missing file is not an error.
func RemoveSegment(dir string, gen uint64) error {
	if err := os.Remove(LogPath(dir, gen)); err != nil && !os.IsNotExist(err) {
		return types.IOError("remove segment", err)
	}
	return nil
}
