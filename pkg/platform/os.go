// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// HomeEnvVar returns the variable holding the user's home directory:
// USERPROFILE on Windows, HOME elsewhere.
func HomeEnvVar() string {
	if runtime.GOOS == Windows {
		return "USERPROFILE"
	}
	return "HOME"
}
