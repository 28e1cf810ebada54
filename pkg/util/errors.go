package util

import (
	"errors"
	"net/http"

	"github.com/disgoorg/disgo/rest"
)

// IsForbidden reports whether err is a Discord REST error caused by missing
// access or permissions.
func IsForbidden(err error) bool {
	var restErr *rest.Error
	if !errors.As(err, &restErr) {
		return false
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
}
