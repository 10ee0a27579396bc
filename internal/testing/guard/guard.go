package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("HARBORVIEW_TEST_MODE") == "" {
			_ = os.Setenv("HARBORVIEW_TEST_MODE", "1")
		}
	})
}
