package httpserver

import "time"

// ShutdownTimeout bounds graceful shutdown, covering in-flight requests and
// the media janitor drain.
var ShutdownTimeout = 15 * time.Second
