//go:build !linux

package dispatcher

import "errors"

var errTotalMemory = errors.New("total system memory unavailable on this platform")

func totalMemory() (uint64, error) {
	return 0, errTotalMemory
}
