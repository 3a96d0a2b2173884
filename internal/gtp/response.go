package gtp

import (
	"fmt"
	"io"
	"strconv"
)

// Response is one rendered protocol reply.
type Response struct {
	// ID echoes the request id; -1 omits it.
	ID      int
	Body    string
	Success bool
}

// WriteResponse frames r onto the protocol stream: '=' or '?' marker, the id
// glued to the marker, one space, the body, a newline, and a blank-line
// terminator. Streaming mode suppresses the terminator so subsequent partial
// analysis lines continue the response.
func WriteResponse(w io.Writer, r Response, streaming bool) error {
	marker := "="
	if !r.Success {
		marker = "?"
	}
	id := ""
	if r.ID >= 0 {
		id = strconv.Itoa(r.ID)
	}
	terminator := "\n"
	if streaming {
		terminator = ""
	}
	_, err := fmt.Fprintf(w, "%s%s %s\n%s", marker, id, r.Body, terminator)
	return err
}
