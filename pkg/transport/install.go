package transport

import (
	"net/http"
	"sync"

	"github.com/getmockd/intercept/pkg/engine"
)

var installMu sync.Mutex

// Install replaces http.DefaultTransport with a Transport for e whose
// passthrough base is the transport being replaced. The returned function
// restores the previous transport; calling it more than once is harmless.
func Install(e *engine.Engine, opts ...Option) (restore func()) {
	installMu.Lock()
	defer installMu.Unlock()

	previous := http.DefaultTransport
	t := New(e, append([]Option{WithBase(previous)}, opts...)...)
	http.DefaultTransport = t
	e.Logger().Debug("transport installed", "netconnect", t.netConnect.String())

	var once sync.Once
	return func() {
		once.Do(func() {
			installMu.Lock()
			defer installMu.Unlock()
			if http.DefaultTransport == t {
				http.DefaultTransport = previous
			}
			e.Logger().Debug("transport restored")
		})
	}
}
