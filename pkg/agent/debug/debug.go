package debug

// IsDebugShowSetup reports whether the resolved setup should be logged at startup.
func IsDebugShowSetup() bool {
	return isDebugShowSetupSet()
}
