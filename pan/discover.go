package pan

import (
	"context"
	"time"

	proto "github.com/ystepanoff/uwbpan/protocol"
	"github.com/ystepanoff/uwbpan/transport"
)

// Discover runs a discovery session on p: Start, then a blocking Blink every
// interval until the PAN master answers, ctx is done or maxAttempts blinks
// went unanswered (maxAttempts <= 0 means no limit).
//
// A session that ended without an allocation keeps the completion semaphore,
// so p must be re-initialised before Discover is called again.
func Discover(ctx context.Context, p *Instance, interval time.Duration, maxAttempts int) (proto.Identity, error) {
	if err := ctx.Err(); err != nil {
		return proto.Identity{}, err
	}
	p.Start()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 0; maxAttempts <= 0 || attempt < maxAttempts; attempt++ {
		if st := p.Blink(transport.Blocking, 0); st.Valid {
			return p.Identity(), nil
		}
		select {
		case <-ctx.Done():
			return proto.Identity{}, ctx.Err()
		case <-ticker.C:
		}
	}
	if p.Valid() {
		return p.Identity(), nil
	}
	return proto.Identity{}, proto.ErrDiscoveryTimeout
}
