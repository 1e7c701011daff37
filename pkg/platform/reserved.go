// SPDX-License-Identifier: MPL-2.0

package platform

import "strings"

// reservedNames are DOS device names. Windows refuses them as file names
// whatever the extension, so a resource with such a name cannot be installed.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsReservedName reports whether name is a Windows device name. Matching is
// case-insensitive and ignores everything from the first dot.
func IsReservedName(name string) bool {
	base, _, _ := strings.Cut(name, ".")
	return reservedNames[strings.ToUpper(base)]
}
