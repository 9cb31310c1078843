package srv

import (
	"context"

	"github.com/peachbot/peachbot/pkg/log"
)

// Service is anything that must release resources before the process exits.
type Service interface {
	Shutdown(ctx context.Context) error
}

// CloseServices shuts services down immediately, in reverse registration
// order. It never waits on the context, so one-shot commands can defer it
// and still exit cleanly without a signal.
func CloseServices(ctx context.Context, services []Service) {
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Shutdown(ctx); err != nil {
			log.FromCtx(ctx).Error().Err(err).Msgf("%T failed to shutdown", services[i])
		}
	}
}
