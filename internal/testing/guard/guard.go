// Package guard forces test mode for packages whose tests touch binaries or runtime wiring.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CONVERTLINE_TEST_MODE") == "" {
			_ = os.Setenv("CONVERTLINE_TEST_MODE", "1")
		}
	})
}
