package infer

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/begriff-lang/begriff/internal/config"
)

// Debug turns on search tracing to stderr. Enabled at startup via
// BEGRIFF_DEBUG_INFER=1.
var Debug = os.Getenv(config.EnvDebugInfer) == "1"

func tracef(format string, args ...interface{}) {
	if !Debug {
		return
	}
	fmt.Fprintf(os.Stderr, "infer: "+format+"\n", args...)
}

// dump pretty-prints a value mid-trace.
func dump(label string, v interface{}) {
	if !Debug {
		return
	}
	fmt.Fprintf(os.Stderr, "infer: %s:\n", label)
	spew.Fdump(os.Stderr, v)
}
