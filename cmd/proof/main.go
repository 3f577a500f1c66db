// Command proof signs the latest commit hash and prints the encrypted
// signature for submission.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shandysiswandi/seedotp/internal/commitproof"
	"github.com/shandysiswandi/seedotp/internal/pkg/instrument"
	"github.com/shandysiswandi/seedotp/internal/pkg/validator"
	"github.com/spf13/pflag"
)

func main() {
	privateKey := pflag.String("private-key", commitproof.DefaultPrivateKeyPath, "PEM private key used to sign the commit hash")
	publicKey := pflag.String("public-key", commitproof.DefaultPublicKeyPath, "PEM public key the signature is encrypted for")
	commit := pflag.String("commit", "", "commit hash to prove (default: $"+commitproof.EnvCommit+", then git log -1)")
	repo := pflag.String("repo", "", "repository directory for git lookups (default: working directory)")
	verbose := pflag.BoolP("verbose", "v", false, "log progress to stderr")
	pflag.Parse()

	ctx := context.Background()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	if _, err := instrument.New(ctx, &instrument.Config{
		ServiceName: "seedotp-proof",
		LogLevel:    level,
		LogOutput:   os.Stderr,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logging:", err)
		os.Exit(1)
	}

	v, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}

	wf := commitproof.New(commitproof.Dependency{
		Resolver:  commitproof.GitResolver{Dir: *repo},
		Validator: v,
	})

	if _, err := wf.Run(ctx, commitproof.Input{
		Commit:         *commit,
		PrivateKeyPath: *privateKey,
		PublicKeyPath:  *publicKey,
	}, os.Stdout); err != nil {
		slog.Error("failed to create commit proof", "error", err)
		os.Exit(1)
	}
}
