// Package discovery locates the keyrelay binary and builds the command
// line the controller starts it with.
//
// # Discovery
//
// The Discoverer interface locates and validates the relay binary:
//
//	discoverer := discovery.NewDiscoverer(&discovery.Config{
//	    ServerPath: "",           // Optional explicit path
//	    Logger:     slog.Default(),
//	})
//	serverPath, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. Explicit path in Config.ServerPath (if provided, and only it)
//  2. System PATH
//  3. Common installation directories (/usr/local/bin, /usr/bin, ~/.local/bin)
//
// During discovery the relay version is compared against MinimumVersion.
// An older relay only produces a warning.
//
// # Command Building
//
//	args := discovery.BuildArgs(options)
//	env := discovery.BuildEnvironment(options)
package discovery
