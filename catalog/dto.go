package catalog

// Book statuses.
const (
	StatusAvailable = "available"
	StatusOnLoan    = "onLoan"
)

// BookDTO is the public view of a book.
type BookDTO struct {
	ID            string `json:"id"`
	ISBN          string `json:"isbn"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Publisher     string `json:"publisher"`
	PublishedYear *int   `json:"publishedYear,omitempty"`
	Status        string `json:"status"`
}

// BookListDTO is the result of ListBooks.
type BookListDTO struct {
	Books []BookDTO `json:"books"`
	Total int       `json:"total"`
}

// BookReadModel is the query-side view of a book.
type BookReadModel struct {
	ID            string `db:"id"`
	ISBN          string `db:"isbn"`
	Title         string `db:"title"`
	Author        string `db:"author"`
	Publisher     string `db:"publisher"`
	PublishedYear *int   `db:"published_year"`
	Status        string `db:"status"`
}

// ToDTO converts the read model into its public view.
func (m BookReadModel) ToDTO() BookDTO {
	return BookDTO(m)
}
