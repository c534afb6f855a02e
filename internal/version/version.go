package version

import "fmt"

const VERSION_MAJOR = 1
const VERSION_MINOR = 0
const VERSION_MICRO = 0

// Commit задается при сборке: -ldflags "-X WooWithWasp/internal/version.Commit=..."
var Commit = ""

var version *Version

type Version struct {
	Major  int
	Minor  int
	Micro  int
	Commit string
}

func (v *Version) String() string {
	if v.Commit == "" {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
	}
	return fmt.Sprintf("%d.%d.%d (%s)", v.Major, v.Minor, v.Micro, v.Commit)
}

func GetVersion() *Version {
	return version
}

func init() {
	version = &Version{
		Major:  VERSION_MAJOR,
		Minor:  VERSION_MINOR,
		Micro:  VERSION_MICRO,
		Commit: Commit,
	}
}
