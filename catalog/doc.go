// Package catalog is the public contract of the catalog bounded context: its messages, DTOs,
// errors, read-side port and container tokens.
//
// Commands:
//   - catalog.registerBook registers a book, see package features/registerbook.
//
// Queries:
//   - catalog.listBooks lists all books.
//   - catalog.getBookById returns one book or BOOK_NOT_FOUND.
package catalog
