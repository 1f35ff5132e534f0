package library

// Message types.
const (
	RegisterLibraryType = "library.registerLibrary"
	ListLibrariesType   = "library.listLibraries"
)

// CommandTypes are the message types the library command bus handles.
var CommandTypes = []string{RegisterLibraryType}

// QueryTypes are the message types the library query bus handles.
var QueryTypes = []string{ListLibrariesType}

// RegisterLibrary registers a library branch. Result: RegisterLibraryResult.
type RegisterLibrary struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// MessageType implements bus.Message.
func (RegisterLibrary) MessageType() string { return RegisterLibraryType }

// RegisterLibraryResult carries the id of the new library.
type RegisterLibraryResult struct {
	LibraryID string `json:"libraryId"`
}

// ListLibraries lists all libraries. Result: LibraryListDTO.
type ListLibraries struct{}

// MessageType implements bus.Message.
func (ListLibraries) MessageType() string { return ListLibrariesType }
