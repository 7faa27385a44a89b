package concierge

// Version is the release of the engine. It is overridden at build time with
// -ldflags "-X github.com/aretw0/concierge.Version=...".
var Version = "dev"
