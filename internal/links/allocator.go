package links

import (
	"context"
	"fmt"
	"strings"

	"github.com/sundayezeilo/tinylink/codegen"
	"github.com/sundayezeilo/tinylink/internal/errx"
)

const DefaultMaxAllocAttempts = 10

// CodeChecker answers whether a code is already taken.
type CodeChecker interface {
	Exists(ctx context.Context, code string) (bool, error)
}

// Allocator produces codes for new links. Its existence checks only narrow the
// window for collisions; the store's unique constraint decides.
type Allocator struct {
	checker     CodeChecker
	generator   codegen.Generator
	maxAttempts int
}

// AllocatorConfig holds configuration for the allocator.
type AllocatorConfig struct {
	Generator   codegen.Generator
	MaxAttempts int // draws before giving up on a random code (default: 10)
}

// NewAllocator creates an Allocator backed by checker.
func NewAllocator(checker CodeChecker, config *AllocatorConfig) *Allocator {
	if config == nil {
		config = &AllocatorConfig{}
	}

	gen := config.Generator
	if gen == nil {
		gen = codegen.NewBase62()
	}

	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAllocAttempts
	}

	return &Allocator{
		checker:     checker,
		generator:   gen,
		maxAttempts: attempts,
	}
}

// Allocate returns requested when it is a valid, unused code, or a fresh random
// code when requested is blank.
func (a *Allocator) Allocate(ctx context.Context, requested string) (string, error) {
	const op = "links.allocator.Allocate"

	code := strings.TrimSpace(requested)
	if code == "" {
		return a.Generate(ctx)
	}

	if err := validateCode(code); err != nil {
		return "", errx.E(op, errx.Invalid, err)
	}

	taken, err := a.checker.Exists(ctx, code)
	if err != nil {
		return "", errx.Wrap(op, err)
	}
	if taken {
		return "", errx.E(op, errx.Conflict, ErrCodeConflict)
	}
	return code, nil
}

// Generate draws random codes until one is unused, giving up after the configured
// number of attempts.
func (a *Allocator) Generate(ctx context.Context) (string, error) {
	const op = "links.allocator.Generate"

	for range a.maxAttempts {
		code, err := a.generator.Generate(GeneratedCodeLength)
		if err != nil {
			return "", errx.E(op, errx.Internal, err)
		}

		taken, err := a.checker.Exists(ctx, code)
		if err != nil {
			return "", errx.Wrap(op, err)
		}
		if !taken {
			return code, nil
		}
	}

	return "", errx.E(op, errx.Exhausted,
		fmt.Errorf("%w after %d attempts", ErrAllocationExhausted, a.maxAttempts))
}
