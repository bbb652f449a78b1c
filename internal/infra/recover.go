package infra

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// restartDelay spaces out restarts of a panicking job; a var so tests can
// shrink it.
var restartDelay = 5 * time.Second

// Recoverable runs f and restarts it after a panic, up to maxRestarts
// times. It returns when f completes normally; exhausting the restart
// budget is fatal, a supervisor restart is cleaner than limping on.
func Recoverable(maxRestarts int, id string, f func()) {
	for {
		if runOnce(id, f) {
			return
		}
		if maxRestarts <= 0 {
			log.Fatalf("restart budget exhausted for job %q, exiting", id)
		}
		maxRestarts--
		log.Debugf("restarting job %q, restarts left: %d", id, maxRestarts)
		time.Sleep(restartDelay)
	}
}

func runOnce(id string, f func()) (completed bool) {
	defer func() {
		if err := recover(); err != nil {
			log.Errorf("job %q panics with message: %s, %s", id, err, identifyPanic())
		}
	}()
	f()
	return true
}

// identifyPanic walks past the runtime frames of a recovered panic to the
// first frame of our own code.
func identifyPanic() string {
	var pc [16]uintptr
	n := runtime.Callers(3, pc[:])
	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%v:%v", frame.Function, frame.Line)
		}
		if !more {
			break
		}
	}
	return fmt.Sprintf("pc:%x", pc)
}
