package debug

import (
	"os"
	"strings"
)

const (
	DebugShowSetupKey = "DEBUG_SHOW_SETUP"
)

func isDebugShowSetupSet() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(DebugShowSetupKey))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
