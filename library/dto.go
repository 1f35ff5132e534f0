package library

// LibraryDTO is the public view of a library branch.
type LibraryDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// LibraryListDTO is the result of ListLibraries.
type LibraryListDTO struct {
	Libraries []LibraryDTO `json:"libraries"`
	Total     int          `json:"total"`
}
