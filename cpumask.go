package detrack

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"
)

// maxCores is the number of cores a single word affinity mask can address
const maxCores = int(unsafe.Sizeof(uintptr(0)) * 8)

// ParseCoreMask converts a core list such as "4-7" or "0,2,4-5" into a CPU
// affinity mask
func ParseCoreMask(cores string) (uintptr, error) {

	var mask uintptr

	for _, part := range strings.Split(cores, ",") {
		part = strings.TrimSpace(part)

		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")

		first, err := strconv.Atoi(lo)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid core %q", ErrConfig, part)
		}

		last := first

		if isRange {
			if last, err = strconv.Atoi(hi); err != nil {
				return 0, fmt.Errorf("%w: invalid core range %q", ErrConfig, part)
			}
		}

		if first < 0 || last >= maxCores || first > last {
			return 0, fmt.Errorf("%w: core range %q outside 0-%d", ErrConfig, part, maxCores-1)
		}

		for c := first; c <= last; c++ {
			mask |= 1 << uint(c)
		}
	}

	if mask == 0 {
		return 0, fmt.Errorf("%w: no cores in %q", ErrConfig, cores)
	}

	return mask, nil
}
