package heap

import (
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("boxheap.heap")

// Runtime debug flag for allocation logging - controlled by BOXHEAP_LOG_ALLOC env var.
var logAlloc = os.Getenv("BOXHEAP_LOG_ALLOC") != ""
