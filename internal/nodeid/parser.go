package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex matches a single segment, e.g. `ds_connectome_scale-length_metric-sum`.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// isValidSegmentName rejects names that are legal under the regex but make
// no sense as node names.
func isValidSegmentName(name string) bool {
	return name != "-" && name != "_"
}

// ValidateSegment checks a single node or workflow name.
func ValidateSegment(name string) error {
	if name == "" {
		return fmt.Errorf("segment cannot be empty")
	}
	if !segmentRegex.MatchString(name) || !isValidSegmentName(name) {
		return fmt.Errorf("invalid segment name: %q", name)
	}
	return nil
}

// Parse creates a new Address by parsing its canonical string representation.
func Parse(rawID string) (*Address, error) {
	if rawID == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}

	addr := &Address{}
	for _, segment := range strings.Split(rawID, ".") {
		if segment == "" {
			return nil, fmt.Errorf("identifier path contains empty segment")
		}
		if err := ValidateSegment(segment); err != nil {
			return nil, err
		}
		addr.Path = append(addr.Path, segment)
	}

	return addr, nil
}

// MustParse is Parse for identifiers known at compile time.
func MustParse(rawID string) *Address {
	addr, err := Parse(rawID)
	if err != nil {
		panic(fmt.Sprintf("nodeid: %v", err))
	}
	return addr
}
