package keyrelay

import "github.com/launchmenu/keyrelay/internal/config"

// Transport is the channel to a relay: event lines in, decision lines out.
//
// The default implementation spawns the keyrelay binary. Custom transports
// can be injected with WithTransport.
type Transport = config.Transport
