package cli

// Version is the version of the reactivectl CLI. Update manually on release.
const Version = "v0.1.0"
