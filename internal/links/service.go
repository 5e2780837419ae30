package links

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sundayezeilo/tinylink/codegen"
	"github.com/sundayezeilo/tinylink/internal/errx"
)

const (
	DefaultStoreTimeout = 5 * time.Second
	// DefaultCreateRetries bounds how often a generated code that lost a create
	// race is replaced by a new one.
	DefaultCreateRetries = 3
)

// CreateLinkRequest represents the parameters for creating a new link.
type CreateLinkRequest struct {
	URL  string
	Code string // Optional: if blank, a code will be generated
}

// Service defines the business logic operations for short links.
type Service interface {
	Create(ctx context.Context, req CreateLinkRequest) (Link, error)
	Get(ctx context.Context, code string) (Link, error)
	List(ctx context.Context, search string) ([]Link, error)
	Delete(ctx context.Context, code string) error
	RecordClick(ctx context.Context, code string) error
}

// service implements the Service interface.
type service struct {
	store         Store
	allocator     *Allocator
	createRetries int
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	CodeGenerator    codegen.Generator
	MaxAllocAttempts int           // random draws per allocation (default: 10)
	CreateRetries    int           // fresh codes after a lost create race (default: 3)
	StoreTimeout     time.Duration // per storage call (default: 5s)
}

// NewService creates a new service instance.
func NewService(store Store, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	timeout := config.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	store = WithTimeout(store, timeout)

	retries := config.CreateRetries
	if retries <= 0 {
		retries = DefaultCreateRetries
	}

	return &service{
		store: store,
		allocator: NewAllocator(store, &AllocatorConfig{
			Generator:   config.CodeGenerator,
			MaxAttempts: config.MaxAllocAttempts,
		}),
		createRetries: retries,
	}
}

// Create creates a new short link with an optional custom code.
func (s *service) Create(ctx context.Context, req CreateLinkRequest) (Link, error) {
	const op = "links.service.Create"

	targetURL := strings.TrimSpace(req.URL)
	if err := validateURL(targetURL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	code, err := s.allocator.Allocate(ctx, req.Code)
	if err != nil {
		return Link{}, errx.Wrap(op, err)
	}

	created, err := s.store.Create(ctx, code, targetURL)
	if err == nil {
		return created, nil
	}
	if !errx.Is(err, errx.Conflict) {
		return Link{}, errx.Wrap(op, err)
	}

	// A caller-chosen code that lost the race is the caller's conflict.
	if strings.TrimSpace(req.Code) != "" {
		return Link{}, errx.E(op, errx.Conflict, errors.Join(ErrCodeConflict, err))
	}

	for range s.createRetries {
		code, err = s.allocator.Generate(ctx)
		if err != nil {
			return Link{}, errx.Wrap(op, err)
		}

		created, err = s.store.Create(ctx, code, targetURL)
		if err == nil {
			return created, nil
		}
		if !errx.Is(err, errx.Conflict) {
			return Link{}, errx.Wrap(op, err)
		}
	}

	return Link{}, errx.E(op, errx.Exhausted,
		fmt.Errorf("%w: lost %d create races", ErrAllocationExhausted, s.createRetries+1))
}

func (s *service) Get(ctx context.Context, code string) (Link, error) {
	const op = "links.service.Get"

	if !ValidCode(code) {
		return Link{}, errx.E(op, errx.NotFound, ErrNotFound)
	}

	link, err := s.store.Get(ctx, code)
	if err != nil {
		return Link{}, errx.Wrap(op, err)
	}
	return link, nil
}

func (s *service) List(ctx context.Context, search string) ([]Link, error) {
	const op = "links.service.List"

	list, err := s.store.List(ctx, search)
	if err != nil {
		return nil, errx.Wrap(op, err)
	}
	if list == nil {
		list = []Link{}
	}
	return list, nil
}

func (s *service) Delete(ctx context.Context, code string) error {
	const op = "links.service.Delete"

	if !ValidCode(code) {
		return errx.E(op, errx.NotFound, ErrNotFound)
	}

	if err := s.store.Delete(ctx, code); err != nil {
		return errx.Wrap(op, err)
	}
	return nil
}

// RecordClick counts one redirect. It is not retried: a repeated increment
// cannot be told apart from a second click.
func (s *service) RecordClick(ctx context.Context, code string) error {
	const op = "links.service.RecordClick"

	if !ValidCode(code) {
		return errx.E(op, errx.NotFound, ErrNotFound)
	}

	if err := s.store.RecordClick(ctx, code); err != nil {
		return errx.Wrap(op, err)
	}
	return nil
}
