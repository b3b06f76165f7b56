package criteria

import (
	"errors"

	"github.com/spigell/profile-search/internal/ai"
)

var (
	// ErrNoJSONBlock is returned when the model answer has no JSON payload.
	ErrNoJSONBlock = ai.ErrNoJSONBlock
	// ErrMalformedJSON is returned when the JSON payload does not decode.
	ErrMalformedJSON = errors.New("failed to parse JSON from response")
	// ErrEmptyQuery is returned for blank queries.
	ErrEmptyQuery = errors.New("query is empty")
)

// InterpretError reports a model answer that could not be turned into
// criteria. Raw holds the answer untouched.
type InterpretError struct {
	Err error
	Raw string
}

func (e *InterpretError) Error() string {
	return "interpret query: " + e.Err.Error()
}

func (e *InterpretError) Unwrap() error {
	return e.Err
}
