package errs

import (
	"fmt"
	"net/http"
	"strings"
)

const (
	ServerInternalError = 500

	ArgsError            = 1001
	NoPermissionError    = 1002
	RecordNotFoundError  = 1004
	ConflictError        = 1009
	UnauthenticatedError = 1501
)

var (
	ErrArgs            = NewCodeError(ArgsError, "ArgsError")
	ErrNoPermission    = NewCodeError(NoPermissionError, "NoPermissionError")
	ErrRecordNotFound  = NewCodeError(RecordNotFoundError, "RecordNotFoundError")
	ErrConflict        = NewCodeError(ConflictError, "ConflictError")
	ErrUnauthenticated = NewCodeError(UnauthenticatedError, "UnauthenticatedError")
	ErrInternalServer  = NewCodeError(ServerInternalError, "ServerInternalError")
)

// HTTPStatus maps an error chain to the response status the REST layer uses.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	codeErr, ok := AsCode(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch codeErr.Code {
	case ArgsError:
		return http.StatusBadRequest
	case NoPermissionError:
		return http.StatusForbidden
	case RecordNotFoundError:
		return http.StatusNotFound
	case ConflictError:
		return http.StatusConflict
	case UnauthenticatedError:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		} else {
			sb.WriteString("MISSING")
		}
	}
	return sb.String()
}

// PublicMessage is the text shown to clients: the detail of a coded error,
// or a generic message for anything uncoded.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	codeErr, ok := AsCode(err)
	if !ok || codeErr.Code == ServerInternalError {
		return "internal server error"
	}
	if codeErr.Detail != "" {
		return codeErr.Detail
	}
	return codeErr.Msg
}
