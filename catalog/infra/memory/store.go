// Package memory keeps books in process memory, shared by the write and the read side.
package memory

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/core"
)

// Store holds books in insertion order.
type Store struct {
	mu    sync.RWMutex
	order []string
	books map[string]core.Book
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{books: make(map[string]core.Book)}
}

// BookRepository implements core.BookRepository on a Store.
type BookRepository struct {
	store *Store
}

// NewBookRepository returns a repository over store.
func NewBookRepository(store *Store) *BookRepository {
	return &BookRepository{store: store}
}

// FindByID implements core.BookRepository.
func (r *BookRepository) FindByID(ctx context.Context, id string) (core.Book, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.Book{}, false, apperror.NewDependency(err)
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	book, ok := r.store.books[id]

	return book, ok, nil
}

// FindByISBN implements core.BookRepository.
func (r *BookRepository) FindByISBN(ctx context.Context, isbn string) (core.Book, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.Book{}, false, apperror.NewDependency(err)
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, id := range r.store.order {
		if book := r.store.books[id]; book.ISBN == isbn {
			return book, true, nil
		}
	}

	return core.Book{}, false, nil
}

// Save implements core.BookRepository. Another book with the same ISBN yields ISBN_ALREADY_EXISTS.
func (r *BookRepository) Save(ctx context.Context, book core.Book) error {
	if err := ctx.Err(); err != nil {
		return apperror.NewDependency(err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, other := range r.store.books {
		if other.ISBN == book.ISBN && other.ID != book.ID {
			return catalog.NewISBNAlreadyExists(book.ISBN)
		}
	}

	if _, exists := r.store.books[book.ID]; !exists {
		r.store.order = append(r.store.order, book.ID)
	}

	r.store.books[book.ID] = book

	return nil
}

// BookQueryService implements catalog.BookQueryService on a Store.
type BookQueryService struct {
	store *Store
}

// NewBookQueryService returns a query service over store.
func NewBookQueryService(store *Store) *BookQueryService {
	return &BookQueryService{store: store}
}

// FindAll implements catalog.BookQueryService.
func (q *BookQueryService) FindAll(ctx context.Context) ([]catalog.BookReadModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.NewDependency(err)
	}

	q.store.mu.RLock()
	defer q.store.mu.RUnlock()

	models := make([]catalog.BookReadModel, 0, len(q.store.order))
	for _, id := range q.store.order {
		models = append(models, toReadModel(q.store.books[id]))
	}

	return models, nil
}

// FindByID implements catalog.BookQueryService.
func (q *BookQueryService) FindByID(ctx context.Context, id string) (catalog.BookReadModel, bool, error) {
	if err := ctx.Err(); err != nil {
		return catalog.BookReadModel{}, false, apperror.NewDependency(err)
	}

	q.store.mu.RLock()
	defer q.store.mu.RUnlock()

	book, ok := q.store.books[id]
	if !ok {
		return catalog.BookReadModel{}, false, nil
	}

	return toReadModel(book), true, nil
}

func toReadModel(book core.Book) catalog.BookReadModel {
	return catalog.BookReadModel(book.ToDTO())
}
