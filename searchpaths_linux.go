//go:build linux

package h5link

import "golang.org/x/sys/unix"

// libDirNames returns the library subdirectory names to try under an
// installation prefix. Debian-style multiarch dirs are derived from the
// machine reported by uname.
func libDirNames() []string {
	names := []string{"lib", "lib64"}
	if triplet := multiarchTriplet(); triplet != "" {
		names = append(names,
			"lib/"+triplet,
			"lib/"+triplet+"/hdf5/serial",
		)
	}
	return names
}

// includeDirNames returns the header subdirectory names to try under an
// installation prefix. Debian splits serial and MPI header sets.
func includeDirNames() []string {
	return []string{"include", "include/hdf5/serial"}
}

func multiarchTriplet() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uname.Machine[:]) + "-linux-gnu"
}
