package runtime

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// healthState tracks whether the last call to the runtime succeeded and
// logs only on a healthy<->unhealthy transition, so a sustained outage
// produces one log line instead of one per request.
type healthState struct {
	healthy atomic.Bool
	known   atomic.Bool
}

func (h *healthState) record(ok bool, log zerolog.Logger, op string) {
	wasKnown := h.known.Swap(true)
	prev := h.healthy.Swap(ok)
	if !wasKnown {
		prev = true // the runtime is presumed healthy until a call fails
	}
	if prev == ok {
		return
	}
	if ok {
		log.Info().Str("op", op).Msg("runtime recovered")
	} else {
		log.Warn().Str("op", op).Msg("runtime unavailable")
	}
}
