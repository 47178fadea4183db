package parsing

import (
	"fmt"
	"strings"
)

// maxReplySnippet bounds how much of a model reply an error quotes.
const maxReplySnippet = 80

// APICallError reports that the language model could not be reached or
// refused the request. The pipeline turns it into an ok=false response.
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	return withCause("llm call failed: "+e.Message, e.Cause)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ParseError reports a model reply that is not a usable filter document.
// Reply holds the start of the offending text.
type ParseError struct {
	Message string
	Reply   string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := "unusable llm reply: " + e.Message
	if e.Reply != "" {
		msg += fmt.Sprintf(" (reply %q)", e.Reply)
	}
	return withCause(msg, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ValidationError reports a filter value outside its domain, such as a GPA
// above 4 or a negative enrollment bound.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid filter: " + e.Message
	}
	return fmt.Sprintf("invalid filter %s: %s", e.Field, e.Message)
}

func withCause(msg string, cause error) string {
	if cause == nil {
		return msg
	}
	return msg + ": " + cause.Error()
}

func replySnippet(reply string) string {
	reply = strings.Join(strings.Fields(reply), " ")
	if len(reply) <= maxReplySnippet {
		return reply
	}
	return reply[:maxReplySnippet-3] + "..."
}
