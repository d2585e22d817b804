package sleepengine

import "errors"

// ErrAlreadySleeping is returned by RunCycle when the engine is not
// currently Awake.
var ErrAlreadySleeping = errors.New("sleep engine: already sleeping")
