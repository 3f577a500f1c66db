// Command seedotp serves the seed decryption and 2FA code endpoints.
package main

import (
	"context"
	"time"

	"github.com/shandysiswandi/seedotp/internal/app"
)

// shutdownTimeout bounds draining requests, pending event publishes and closers.
const shutdownTimeout = 10 * time.Second

func main() {
	svc := app.New()
	<-svc.Start()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	svc.Stop(ctx)
}
