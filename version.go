package housekeeping

// HOUSEKEEPING_VERSION is overridden at build time with
// -ldflags "-X github.com/formicidae-tracker/housekeeping.HOUSEKEEPING_VERSION=vX.Y.Z".
var HOUSEKEEPING_VERSION = "development"

// CONFIG_FMT_VERSION is the configuration file format understood by
// this version. Files with the same major and a lower or equal
// version are accepted.
const CONFIG_FMT_VERSION = "1.0.0"
