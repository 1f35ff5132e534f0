// Package memory keeps libraries in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library/core"
)

// Store holds libraries in registration order and serves both sides.
type Store struct {
	mu        sync.RWMutex
	libraries []core.Library
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Save implements core.LibraryRepository. A known id is replaced in place.
func (s *Store) Save(ctx context.Context, lib core.Library) error {
	if err := ctx.Err(); err != nil {
		return apperror.NewDependency(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.libraries {
		if existing.ID == lib.ID {
			s.libraries[i] = lib
			return nil
		}
	}

	s.libraries = append(s.libraries, lib)

	return nil
}

// FindAll implements core.LibraryRepository.
func (s *Store) FindAll(ctx context.Context) ([]core.Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.NewDependency(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]core.Library(nil), s.libraries...), nil
}

// QueryService implements library.LibraryQueryService on a Store.
type QueryService struct {
	store *Store
}

// NewQueryService returns a query service over store.
func NewQueryService(store *Store) *QueryService {
	return &QueryService{store: store}
}

// FindAll implements library.LibraryQueryService.
func (q *QueryService) FindAll(ctx context.Context) ([]library.LibraryDTO, error) {
	libraries, err := q.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	dtos := make([]library.LibraryDTO, 0, len(libraries))
	for _, lib := range libraries {
		dtos = append(dtos, lib.ToDTO())
	}

	return dtos, nil
}
