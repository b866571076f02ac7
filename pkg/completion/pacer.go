package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// errPacing marks calls that never left the process because the local pacer
// could not hand out a slot in time.
var errPacing = errors.New("outbound pacing")

type pacedClient struct {
	next    Client
	limiter *rate.Limiter
}

// WithPacer spaces outbound calls so that all users together stay under
// perMinute requests. A non-positive perMinute disables pacing.
func WithPacer(next Client, perMinute int) Client {
	if perMinute <= 0 {
		return next
	}
	return &pacedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (p *pacedClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", &UpstreamError{Message: "outbound pacing: " + err.Error(), Err: fmt.Errorf("%w: %w", errPacing, err)}
	}

	return p.next.Complete(ctx, req)
}
