package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soarhub-io/helios-connector/pkg/helios"
)

// NotFoundError reports that no open ransomware alert matched the requested
// object name.
type NotFoundError struct {
	Object string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no anomalous object found by the given name: %s", e.Object)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuthorizationError classifies a Helios failure as an authorization
// problem. The service reports auth failures either as 401/403 statuses or
// as error text carrying forbidden/authorization markers, so both are
// inspected.
func IsAuthorizationError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *helios.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == 401 || apiErr.Status == 403 {
			return true
		}
	}

	msg := err.Error()
	return strings.Contains(msg, "Forbidden") || strings.Contains(msg, "Authorization")
}
