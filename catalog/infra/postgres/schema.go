package postgres

import "fmt"

// DefaultBooksTable is the table used unless another name is given.
const DefaultBooksTable = "books"

const booksSchemaTemplate = `CREATE TABLE IF NOT EXISTS %[1]s (
    id             TEXT    PRIMARY KEY,
    isbn           TEXT    NOT NULL,
    title          TEXT    NOT NULL,
    author         TEXT    NOT NULL,
    publisher      TEXT    NOT NULL DEFAULT '',
    published_year INTEGER NULL,
    status         TEXT    NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT %[1]s_isbn_key UNIQUE (isbn)
);
`

// SchemaSQL returns the DDL of the books table.
func SchemaSQL(tableName string) string {
	return fmt.Sprintf(booksSchemaTemplate, tableName)
}

// ISBNConstraint names the unique constraint on the isbn column.
func ISBNConstraint(tableName string) string {
	return tableName + "_isbn_key"
}
