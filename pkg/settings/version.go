package settings

// set by -ldflags "-X github.com/liut/parley/pkg/settings.version=..."
var version = "dev"
