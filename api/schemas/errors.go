package schemas

import "errors"

// ErrSessionLost marks a browser session that can no longer execute
// commands. Everything else the driver returns is treated as a transient
// page condition; this one propagates and ends the run.
var ErrSessionLost = errors.New("browser session lost")
