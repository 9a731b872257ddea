package common

// PackageName is used as the Prometheus namespace and the default service tag.
const PackageName = "scanpool"

// Version is overridden at build time via -ldflags.
var Version = "dev"
