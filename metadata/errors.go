package metadata

import (
	"errors"
	"fmt"
)

// ErrorKind classifies retrieval failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidArgument
	KindAccess
	KindEmptyDocument
	KindMalformedXML
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindAccess:
		return "access"
	case KindEmptyDocument:
		return "empty_document"
	case KindMalformedXML:
		return "malformed_xml"
	default:
		return "unknown"
	}
}

// InvalidArgumentError indicates unusable caller input.
type InvalidArgumentError struct {
	Argument string
	Reason   string
}

func NewInvalidArgumentError(argument, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Argument: argument, Reason: reason}
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Argument, e.Reason)
}

func (e *InvalidArgumentError) Kind() ErrorKind { return KindInvalidArgument }

// IsInvalidArgument checks if the error is an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var e *InvalidArgumentError
	return errors.As(err, &e)
}

// AccessError indicates the endpoint or the staging location could not be reached.
type AccessError struct {
	Endpoint string
	Cause    error
}

func NewAccessError(endpoint string, cause error) *AccessError {
	return &AccessError{Endpoint: endpoint, Cause: cause}
}

func (e *AccessError) Error() string {
	if e.Cause == nil {
		return e.Message()
	}
	return fmt.Sprintf("%s: %v", e.Message(), e.Cause)
}

// Message is the one-line text shown to users.
func (e *AccessError) Message() string {
	return fmt.Sprintf("Cannot access %s", e.Endpoint)
}

func (e *AccessError) Unwrap() error { return e.Cause }

func (e *AccessError) Kind() ErrorKind { return KindAccess }

// IsAccessError checks if the error is an AccessError.
func IsAccessError(err error) bool {
	var e *AccessError
	return errors.As(err, &e)
}

// EmptyDocumentError indicates the document ended before any element.
type EmptyDocumentError struct {
	Endpoint string
}

func NewEmptyDocumentError(endpoint string) *EmptyDocumentError {
	return &EmptyDocumentError{Endpoint: endpoint}
}

func (e *EmptyDocumentError) Error() string {
	return "The metadata is an empty file"
}

func (e *EmptyDocumentError) Kind() ErrorKind { return KindEmptyDocument }

// IsEmptyDocument checks if the error is an EmptyDocumentError.
func IsEmptyDocument(err error) bool {
	var e *EmptyDocumentError
	return errors.As(err, &e)
}

// MalformedXMLError indicates the document is not well-formed XML.
type MalformedXMLError struct {
	Endpoint string
	Line     int
	Cause    error
}

func NewMalformedXMLError(endpoint string, line int, cause error) *MalformedXMLError {
	return &MalformedXMLError{Endpoint: endpoint, Line: line, Cause: cause}
}

func (e *MalformedXMLError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed metadata document from %s at line %d: %v", e.Endpoint, e.Line, e.Cause)
	}
	return fmt.Sprintf("malformed metadata document from %s: %v", e.Endpoint, e.Cause)
}

func (e *MalformedXMLError) Unwrap() error { return e.Cause }

func (e *MalformedXMLError) Kind() ErrorKind { return KindMalformedXML }

// IsMalformedXML checks if the error is a MalformedXMLError.
func IsMalformedXML(err error) bool {
	var e *MalformedXMLError
	return errors.As(err, &e)
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	var k interface{ Kind() ErrorKind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// UserMessage returns the single line to show for a retrieval failure.
func UserMessage(err error) string {
	var access *AccessError
	if errors.As(err, &access) {
		return access.Message()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
