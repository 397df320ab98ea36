// Package errors provides examples of structured error handling in blockstream.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/blockstream/pkg/errors"
)

// Example demonstrates basic error creation and wrapping.
func Example() {
	err := errors.New(errors.ErrorTypeConfig, "no target descriptor given").
		WithDetail("flag", "--target")

	fmt.Println(err.Error())

	// Output:
	// config: no target descriptor given
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeFile, "failed to read IPC stream").
		WithDetail("file", "rows.arrows")

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}
	fmt.Println(err.Error())

	// Output:
	// This is a file error
	// file: failed to read IPC stream: unexpected EOF
}

// ExampleNullNotAllowed shows the coded schema and data errors.
func ExampleNullNotAllowed() {
	err := errors.NullNotAllowed("tag", 2)

	fmt.Println(err)
	fmt.Println(errors.IsCode(err, errors.CodeNullNotAllowed))
	fmt.Println(errors.IsRetryable(err))

	// Output:
	// data/null_not_allowed: cannot insert NULL into non-nullable column "tag"
	// true
	// false
}

// ExampleWrap_code shows that wrapping keeps the original code.
func ExampleWrap_code() {
	err := errors.Wrap(errors.MissingColumn("extra"), errors.ErrorTypeConfig, "cannot build insert stream")

	fmt.Println(errors.IsCode(err, errors.CodeMissingColumn))
	fmt.Println(errors.IsType(err, errors.ErrorTypeConfig))

	// Output:
	// true
	// true
}
