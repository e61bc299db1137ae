package version

// GitCommit is the git commit the binary was built from. Filled in at build
// time through the linker.
var GitCommit string

// Version is the release version of this build. Filled in at build time
// through the linker, the default marks local builds.
var Version = "0.0.0-dev"
