package gemini

import (
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ProviderError is a non-2xx answer from the Gemini API.
type ProviderError struct {
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("gemini: provider error %d: %s", e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) HTTPStatusCode() int { return e.Status }

func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Status: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ProviderError{Status: apiErrPtr.Code, Message: apiErrPtr.Message, Err: err}
	}
	return err
}
