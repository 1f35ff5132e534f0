package catalog

// Message types.
const (
	RegisterBookType = "catalog.registerBook"
	ListBooksType    = "catalog.listBooks"
	GetBookByIDType  = "catalog.getBookById"
)

// CommandTypes are the message types the catalog command bus handles.
var CommandTypes = []string{RegisterBookType}

// QueryTypes are the message types the catalog query bus handles.
var QueryTypes = []string{ListBooksType, GetBookByIDType}

// RegisterBookInput is the unvalidated input of RegisterBook. Publisher defaults to "".
type RegisterBookInput struct {
	ISBN          string `json:"isbn"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Publisher     string `json:"publisher,omitempty"`
	PublishedYear *int   `json:"publishedYear,omitempty"`
}

// RegisterBook registers a new book. Result: BookDTO.
type RegisterBook struct {
	Input RegisterBookInput
}

// MessageType implements bus.Message.
func (RegisterBook) MessageType() string { return RegisterBookType }

// ListBooks lists all books. Result: BookListDTO.
type ListBooks struct{}

// MessageType implements bus.Message.
func (ListBooks) MessageType() string { return ListBooksType }

// GetBookByID returns one book. Result: BookDTO.
type GetBookByID struct {
	BookID string
}

// MessageType implements bus.Message.
func (GetBookByID) MessageType() string { return GetBookByIDType }
