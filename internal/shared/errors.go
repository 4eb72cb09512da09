package shared

type Error string

// Implement the error interface
func (e Error) Error() string { return string(e) }

//------------
// Definitions
//------------

// cli errors
const (
	ErrorCreateFile = Error("could not create the file")
	ErrorEncodeFile = Error("could not encode to file")
)

// pipeline errors
const (
	ErrUnknownEntity = Error("unknown entity")
	ErrInvalidName   = Error("invalid name")
	ErrNotFound      = Error("not found")
)
