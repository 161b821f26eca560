// Error classification.
//
// Classify is the single place where a failure becomes an HTTP status and an
// ErrorResponse. It understands every fault kind plus the library errors
// that surface from request binding (validator, encoding/json) and the
// filesystem permission error. Anything else is a 500.
//
// ErrorHandler must be registered before any middleware that can record an
// error (Recovery, Consumes, handlers) so it sees them all once the chain
// returns.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-email-collector/internal/domain"
	"github.com/tbourn/go-email-collector/internal/fault"
	"github.com/tbourn/go-email-collector/internal/http/middleware"
)

func init() {
	// Report request fields by their JSON names ("email", not "Email").
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// Classify maps err to its HTTP status, envelope and failure kind. It is
// total: every error, including nil, yields an envelope.
func Classify(err error) (int, ErrorResponse, fault.Kind) {
	if err == nil {
		err = errors.New("unknown error")
	}
	err = fromLibrary(err)

	resp := ErrorResponse{Time: now(), Message: err.Error()}
	kind := fault.KindOf(err)

	var status int
	switch kind {
	case fault.KindFieldValidation:
		var fe fault.FieldErrors
		errors.As(err, &fe)
		status, resp.Errors = http.StatusBadRequest, fe.Lines()
	case fault.KindConstraintViolation:
		var cv fault.ConstraintViolations
		errors.As(err, &cv)
		status, resp.Errors = http.StatusBadRequest, cv.Lines()
	case fault.KindTypeMismatch, fault.KindMissing, fault.KindValidation:
		status, resp.Error = http.StatusBadRequest, err.Error()
	case fault.KindAccessDenied:
		status, resp.Error = http.StatusForbidden, err.Error()
	case fault.KindRouteNotFound:
		status, resp.Error = http.StatusNotFound, err.Error()
	case fault.KindMethodNotAllowed:
		var mna *fault.MethodNotAllowedError
		errors.As(err, &mna)
		status, resp.Error = http.StatusMethodNotAllowed, mna.Detail()
	case fault.KindUnsupportedMediaType:
		var mt *fault.MediaTypeError
		errors.As(err, &mt)
		status, resp.Error = http.StatusUnsupportedMediaType, mt.Detail()
	case fault.KindStatus:
		var se *fault.StatusError
		errors.As(err, &se)
		status = se.Status
		resp.Error, resp.Message = se.Reason, se.Reason
	default:
		status, resp.Error = http.StatusInternalServerError, err.Error()
	}
	resp.Code = status
	return status, resp, kind
}

// fromLibrary converts binding and I/O errors into fault types. Errors it
// does not recognize are returned unchanged.
func fromLibrary(err error) error {
	var (
		verrs  validator.ValidationErrors
		ute    *json.UnmarshalTypeError
		syn    *json.SyntaxError
		tooBig *http.MaxBytesError
	)
	switch {
	case fault.KindOf(err) != fault.KindUnclassified:
		return err
	case errors.As(err, &verrs):
		out := make(fault.FieldErrors, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fault.FieldError{
				Field:   fe.Field(),
				Message: domain.ConstraintMessage(fe.Tag(), fe.Param()),
			})
		}
		return out
	case errors.As(err, &ute):
		field := ute.Field
		if field == "" {
			field = "body"
		}
		return &fault.TypeMismatchError{Value: ute.Value, Field: field, Type: ute.Type.String()}
	case errors.Is(err, io.EOF):
		return &fault.MissingError{Name: "body", Part: true}
	case errors.As(err, &syn), errors.Is(err, io.ErrUnexpectedEOF):
		return &fault.ValidationError{Msg: "malformed JSON body: " + err.Error(), Err: err}
	case errors.As(err, &tooBig):
		return &fault.ValidationError{Msg: err.Error(), Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &fault.AccessDeniedError{Msg: err.Error(), Err: err}
	}
	return err
}

// ErrorHandler writes the envelope for the last error recorded on the
// request.
//
// Every failure is logged twice through the request-scoped logger: the kind
// at info, then "Fail: <message>" with the full error at error level. It is
// also counted in http_failures_total. If a response was already written
// only the logging and counting happen.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}
		status, resp, kind := Classify(last.Err)
		resp.RequestID = middleware.RequestIDFrom(c)

		lg := middleware.LoggerFrom(c)
		lg.Info().Str("kind", kind.String()).Int("status", status).Msg(kind.String())
		lg.Error().Err(last.Err).Str("kind", kind.String()).Msg("Fail: " + resp.Message)
		middleware.ObserveFailure(kind.String(), status)

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, resp)
	}
}
