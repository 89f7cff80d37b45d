//go:build !linux

package h5link

// libDirNames returns the library subdirectory names to try under an
// installation prefix. Multiarch layouts are a Linux concern.
func libDirNames() []string {
	return []string{"lib", "lib64"}
}

// includeDirNames returns the header subdirectory names to try under an
// installation prefix.
func includeDirNames() []string {
	return []string{"include"}
}
