package pulptests

// Known metadata of the RPM fixture used by the upload tests. The file lives
// in the rpm-unsigned fixture repository and its fields are stable.
const (
	rpmFixturePath    = "/rpm-unsigned/bear-4.1-1.noarch.rpm"
	rpmFixtureRepoDir = "/rpm-unsigned/"

	rpmName     = "bear"
	rpmEpoch    = "0"
	rpmVersion  = "4.1"
	rpmRelease  = "1"
	rpmArch     = "noarch"
	rpmLicense  = "GPLv2"
	rpmFilename = "bear-4.1-1.noarch.rpm"
)
