package otsync

import _ "embed"

// Version is the release of the otsync module.
//
//go:embed VERSION
var Version string
