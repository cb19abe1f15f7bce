package utils

import "fmt"

// RecoverWithError turns a panic of the calling function into *err.
// Must be called directly by defer.
func RecoverWithError(err *error) {
	if rv := recover(); rv != nil {
		*err = fmt.Errorf("got panic: %v", rv)
	}
}
