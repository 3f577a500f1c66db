// Package commitproof signs the current commit hash with the local private key
// and wraps the signature for the counterparty, producing a proof string that
// is submitted by hand.
package commitproof

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/shandysiswandi/seedotp/internal/pkg/keystore"
	"github.com/shandysiswandi/seedotp/internal/pkg/proof"
	"github.com/shandysiswandi/seedotp/internal/pkg/validator"
)

const (
	// DefaultPrivateKeyPath is the signer key looked up in the working directory.
	DefaultPrivateKeyPath = "student_private.pem"
	// DefaultPublicKeyPath is the counterparty key looked up in the working directory.
	DefaultPublicKeyPath = "instructor_public.pem"
	// EnvCommit overrides commit resolution, e.g. in CI where .git is absent.
	EnvCommit = "GIT_COMMIT"
)

// ErrCommitUnavailable is returned when no commit hash could be resolved.
var ErrCommitUnavailable = errors.New("commitproof: commit hash unavailable")

// Resolver finds the commit to prove when none is given explicitly.
type Resolver interface {
	HeadCommit(ctx context.Context) (string, error)
}

// GitResolver asks the git binary for the last commit of the repository in Dir
// (the working directory when empty).
type GitResolver struct {
	Dir string
}

// HeadCommit implements Resolver.
func (g GitResolver) HeadCommit(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "log", "-1", "--format=%H")
	cmd.Dir = g.Dir

	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%w: git log: %w: %s", ErrCommitUnavailable, err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(string(out)), nil
}

// Input selects the commit and key files. An empty Commit is resolved from
// the environment and then from the Resolver.
type Input struct {
	Commit         string
	PrivateKeyPath string `validate:"required"`
	PublicKeyPath  string `validate:"required"`
}

// Result is the proof printed for submission.
type Result struct {
	Commit string
	Proof  string
}

type commitInput struct {
	Commit string `json:"commit" validate:"required,commitish"`
}

type Dependency struct {
	Resolver  Resolver
	Validator validator.Validator
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Workflow runs the commit proof end to end.
type Workflow struct {
	resolver  Resolver
	validator validator.Validator
	getenv    func(string) string
}

func New(dep Dependency) *Workflow {
	getenv := dep.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	resolver := dep.Resolver
	if resolver == nil {
		resolver = GitResolver{}
	}

	return &Workflow{
		resolver:  resolver,
		validator: dep.Validator,
		getenv:    getenv,
	}
}

// Run resolves the commit, signs it, encrypts the signature for the
// counterparty and writes both to out.
func (w *Workflow) Run(ctx context.Context, in Input, out io.Writer) (*Result, error) {
	if err := w.validator.Validate(in); err != nil {
		return nil, err
	}

	commit, err := w.resolveCommit(ctx, in.Commit)
	if err != nil {
		return nil, err
	}

	if err := w.validator.Validate(commitInput{Commit: commit}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommitUnavailable, err)
	}

	priv, err := keystore.LoadPrivateKey(in.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	pub, err := keystore.LoadPublicKey(in.PublicKeyPath)
	if err != nil {
		return nil, err
	}

	sig, err := proof.Sign(commit, priv)
	if err != nil {
		return nil, err
	}

	if !proof.Verify(commit, sig, &priv.PublicKey) {
		return nil, proof.ErrSigning
	}

	encrypted, err := proof.EncryptSignature(sig, pub)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "commit proof created", "commit", commit, "signature_bytes", len(sig))

	if err := write(out, commit, encrypted); err != nil {
		return nil, err
	}

	return &Result{Commit: commit, Proof: encrypted}, nil
}

func (w *Workflow) resolveCommit(ctx context.Context, explicit string) (string, error) {
	if c := strings.TrimSpace(explicit); c != "" {
		return c, nil
	}

	if c := strings.TrimSpace(w.getenv(EnvCommit)); c != "" {
		return c, nil
	}

	c, err := w.resolver.HeadCommit(ctx)
	if err != nil {
		return "", err
	}
	if c == "" {
		return "", ErrCommitUnavailable
	}

	return c, nil
}

func write(out io.Writer, commit, encrypted string) error {
	_, err := fmt.Fprintf(out, "\nCommit Hash: %s\n\nEncrypted Signature (submit this):\n%s\n", commit, encrypted)
	return err
}
