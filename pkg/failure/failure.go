// Package failure classifies errors from the submission path into a small set
// of kinds that every caller reports the same way.
package failure

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/form"
	"github.com/jalsampada/go-frappeforms/pkg/frappe"
)

// Kind tags a Failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindAuth       Kind = "auth"
	KindNetwork    Kind = "network"
	KindUnknown    Kind = "unknown"
)

// Fixed messages for kinds whose server detail is not shown to users.
const (
	MessageAuth    = "You are not allowed to access this record, or it no longer exists."
	MessageNetwork = "The server could not be reached. Check your connection and try again."
	MessageUnknown = "Something went wrong while saving."
)

// Failure is the classified form of an error.
type Failure struct {
	Kind      Kind                `json:"kind"`
	Detail    string              `json:"detail"`
	Status    int                 `json:"status,omitempty"`
	Exception string              `json:"exception,omitempty"`
	Fields    map[string][]string `json:"fields,omitempty"`
	Err       error               `json:"-"`
}

func (f *Failure) Error() string {
	if f == nil {
		return "failure: <nil>"
	}
	if f.Detail == "" {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Detail
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// HTTPStatus maps the kind onto the status an HTTP handler should answer
// with. Auth failures keep the upstream status when one is known.
func (f *Failure) HTTPStatus() int {
	if f == nil {
		return http.StatusOK
	}
	switch f.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		switch f.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return f.Status
		}
		return http.StatusForbidden
	case KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var (
	authExceptions = map[string]struct{}{
		"PermissionError":     {},
		"AuthenticationError": {},
		"DoesNotExistError":   {},
		"SessionExpired":      {},
	}
	conflictExceptions = map[string]struct{}{
		"DuplicateEntryError":    {},
		"UniqueValidationError":  {},
		"TimestampMismatchError": {},
	}
	validationExceptions = map[string]struct{}{
		"ValidationError":              {},
		"MandatoryError":               {},
		"LinkValidationError":          {},
		"InvalidSelectOptionError":     {},
		"CharacterLengthExceededError": {},
		"DataError":                    {},
	}
)

// Classify converts err into a Failure. It returns nil for a nil error and
// passes an existing *Failure through.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}

	var existing *Failure
	if errors.As(err, &existing) {
		return existing
	}

	var verr *form.ValidationError
	if errors.As(err, &verr) {
		return &Failure{Kind: KindValidation, Detail: validationDetail(verr.Fields), Fields: verr.Fields, Err: err}
	}
	var ferr *form.FieldError
	if errors.As(err, &ferr) {
		fields := ferr.AsValidation().Fields
		return &Failure{Kind: KindValidation, Detail: validationDetail(fields), Fields: fields, Err: err}
	}

	var apiErr *frappe.APIError
	if errors.As(err, &apiErr) {
		return classifyAPI(apiErr, err)
	}

	if isNetwork(err) {
		return &Failure{Kind: KindNetwork, Detail: MessageNetwork, Err: err}
	}
	return &Failure{Kind: KindUnknown, Detail: MessageUnknown, Err: err}
}

func classifyAPI(apiErr *frappe.APIError, err error) *Failure {
	out := &Failure{Status: apiErr.Status, Exception: apiErr.ExcType, Err: err}
	_, isAuth := authExceptions[apiErr.ExcType]
	_, isConflict := conflictExceptions[apiErr.ExcType]
	_, isValidation := validationExceptions[apiErr.ExcType]

	switch {
	case isAuth || apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden || apiErr.Status == http.StatusNotFound:
		out.Kind = KindAuth
		out.Detail = MessageAuth
	case isConflict || apiErr.Status == http.StatusConflict:
		out.Kind = KindConflict
		out.Detail = apiErr.Detail()
	case isValidation || apiErr.Status == http.StatusExpectationFailed || apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnprocessableEntity:
		out.Kind = KindValidation
		out.Detail = apiErr.Detail()
		out.Fields = mandatoryFields(apiErr)
	default:
		out.Kind = KindUnknown
		out.Detail = apiErr.Detail()
		if out.Detail == "" {
			out.Detail = MessageUnknown
		}
	}
	return out
}

// mandatoryFields extracts the field names of a MandatoryError, whose
// exception reads "[Doctype, name]: field_a, field_b".
func mandatoryFields(apiErr *frappe.APIError) map[string][]string {
	if apiErr.ExcType != "MandatoryError" {
		return nil
	}
	_, rest, ok := strings.Cut(apiErr.Exception, "]:")
	if !ok {
		return nil
	}
	fields := make(map[string][]string)
	for _, name := range strings.Split(rest, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		fields[name] = append(fields[name], "Value missing")
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func validationDetail(fields map[string][]string) string {
	if len(fields) == 0 {
		return "Please correct the highlighted fields."
	}
	paths := make([]string, 0, len(fields))
	for path := range fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	messages := make([]string, 0, len(paths))
	for _, path := range paths {
		messages = append(messages, fields[path]...)
	}
	return strings.Join(messages, "; ")
}
