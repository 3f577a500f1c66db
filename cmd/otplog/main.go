// Command otplog prints the current 2FA code with a UTC timestamp. It is
// meant to run from cron once a minute.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/shandysiswandi/seedotp/internal/app"
	"github.com/shandysiswandi/seedotp/internal/pkg/clock"
	"github.com/shandysiswandi/seedotp/internal/pkg/instrument"
	"github.com/shandysiswandi/seedotp/internal/seed/usecase"
	"github.com/spf13/pflag"
)

const timestampLayout = "2006-01-02 15:04:05"

type codeGenerator interface {
	GenerateCode(ctx context.Context) (*usecase.GenerateCodeOutput, error)
}

func main() {
	configPath := pflag.String("config", app.ConfigPath(), "path to the service config file")
	pflag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := instrument.New(ctx, &instrument.Config{
		ServiceName: "seedotp-otplog",
		LogLevel:    slog.LevelWarn,
		LogOutput:   os.Stderr,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logging:", err)
		os.Exit(1)
	}

	clk := clock.New()
	gen, closeFn := open(ctx, *configPath, clk)
	defer closeFn()

	run(ctx, os.Stdout, gen)
}

// open builds the code generator over the configured seed store. Any failure
// yields a nil generator, which run reports as a missing seed.
func open(ctx context.Context, path string, clk clock.Clocker) (codeGenerator, func()) {
	cfg, err := app.LoadConfig(path)
	if err != nil {
		slog.WarnContext(ctx, "failed to load config", "error", err)
		return nil, func() {}
	}

	ins := instrument.NewNoop()

	st, err := app.OpenSeedStore(ctx, cfg, ins)
	if err != nil {
		slog.WarnContext(ctx, "failed to open seed store", "error", err)
		_ = cfg.Close()
		return nil, func() {}
	}

	uc := usecase.New(usecase.Dependency{
		RepoStore:  st,
		Totp:       app.NewTOTP(cfg),
		Clock:      clk,
		Instrument: ins,
	})

	return uc, func() {
		_ = st.Close()
		_ = cfg.Close()
	}
}

// run prints one line stamped with the instant the code was computed for. A
// missing or unreadable seed is reported on stdout and is not a failure of the
// command.
func run(ctx context.Context, out io.Writer, gen codeGenerator) {
	if gen == nil {
		fmt.Fprintln(out, "ERROR: seed not found")
		return
	}

	res, err := gen.GenerateCode(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to generate code", "error", err)
		fmt.Fprintln(out, "ERROR: seed not found")
		return
	}

	fmt.Fprintf(out, "%s - 2FA Code: %s\n", res.At.UTC().Format(timestampLayout), res.Code)
}
