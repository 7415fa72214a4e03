package version

// Version is the release version of the remote-backup CLI.
var Version = "0.1.0"
