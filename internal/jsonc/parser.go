// Package jsonc parses JSON-with-comments documents.
//
// Claude settings files may contain // and /* */ comments that
// encoding/json rejects. Parse strips them while preserving the original
// line/column structure, so error positions reported against the stripped
// text remain valid against the text the user actually wrote.
package jsonc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseError describes a syntax problem at a position in the original text.
type ParseError struct {
	Message string
	Line    int // 1-based
	Column  int // 1-based
	Offset  int // byte offset into the original text
}

// Error implements the error interface.
func (e ParseError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Line, e.Column)
}

// ParseResult pairs the decoded document with any errors encountered.
// Data is always non-nil so callers can apply force/override policies
// without nil checks.
type ParseResult struct {
	Data   map[string]any
	Errors []ParseError
}

// Ok reports whether the parse completed without errors.
func (r ParseResult) Ok() bool {
	return len(r.Errors) == 0
}

// Parse decodes a JSONC document into a generic map.
// Empty or whitespace-only input yields an empty document with no errors.
// Syntax problems are returned as structured errors, never panics.
func Parse(content string) ParseResult {
	result := ParseResult{Data: map[string]any{}}

	if strings.TrimSpace(content) == "" {
		return result
	}

	stripped, stripErrs := stripComments(content)
	result.Errors = append(result.Errors, stripErrs...)
	if len(stripErrs) > 0 {
		return result
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(stripped), &data); err != nil {
		result.Errors = append(result.Errors, wrapJSONError(err, content))
		return result
	}
	if data != nil {
		result.Data = data
	}
	return result
}

// stripComments replaces comments with whitespace of identical shape:
// every non-newline byte becomes a space, newlines are kept. This keeps
// all byte offsets, lines and columns of the remaining JSON unchanged.
func stripComments(content string) (string, []ParseError) {
	var (
		out      = make([]byte, 0, len(content))
		errs     []ParseError
		inString bool
		escaped  bool
	)

	i := 0
	for i < len(content) {
		c := content[i]

		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			i++
			continue
		}

		switch {
		case c == '"':
			inString = true
			out = append(out, c)
			i++

		case c == '/' && i+1 < len(content) && content[i+1] == '/':
			for i < len(content) && content[i] != '\n' {
				out = append(out, ' ')
				i++
			}

		case c == '/' && i+1 < len(content) && content[i+1] == '*':
			start := i
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				line, col := positionAt(content, start)
				errs = append(errs, ParseError{
					Message: "unterminated block comment",
					Line:    line,
					Column:  col,
					Offset:  start,
				})
				// Blank out the rest so offsets stay consistent.
				for i < len(content) {
					out = append(out, blank(content[i]))
					i++
				}
				break
			}
			stop := i + 2 + end + 2
			for i < stop {
				out = append(out, blank(content[i]))
				i++
			}

		default:
			out = append(out, c)
			i++
		}
	}

	return string(out), errs
}

// blank maps a comment byte to its whitespace replacement.
func blank(c byte) byte {
	if c == '\n' {
		return '\n'
	}
	return ' '
}

// positionAt converts a byte offset into a 1-based line and column.
func positionAt(content string, offset int) (line, col int) {
	if offset > len(content) {
		offset = len(content)
	}
	line, col = 1, 1
	for i := 0; i < offset; i++ {
		if content[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// wrapJSONError converts an encoding/json error into a ParseError,
// recovering line/column from the byte offset when available.
func wrapJSONError(err error, content string) ParseError {
	pe := ParseError{Message: err.Error(), Line: 1, Column: 1}

	switch jsonErr := err.(type) {
	case *json.SyntaxError:
		pe.Offset = int(jsonErr.Offset)
	case *json.UnmarshalTypeError:
		pe.Offset = int(jsonErr.Offset)
	default:
		// Some json errors only carry the offset in their message.
		if idx := strings.LastIndex(pe.Message, "offset "); idx >= 0 {
			if n, convErr := strconv.Atoi(strings.TrimSpace(pe.Message[idx+len("offset "):])); convErr == nil {
				pe.Offset = n
			}
		}
	}

	pe.Line, pe.Column = positionAt(content, pe.Offset)
	return pe
}
