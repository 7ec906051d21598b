package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/formationpro/fichepresence/core"
	"github.com/formationpro/fichepresence/core/attendance"
	remotesvc "github.com/formationpro/fichepresence/services/remote"
)

var (
	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "not found")
	errInvalidIndex    = echo.NewHTTPError(http.StatusNotFound, "index invalide")
	errInvalidSheetID  = echo.NewHTTPError(http.StatusBadRequest, "identifiant de fiche invalide")
	errRemoteAPIFailed = echo.NewHTTPError(http.StatusBadGateway, "le serveur Formation Pro est indisponible")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var statusErr *remotesvc.StatusError
		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateValidationErrors(origErr, translator)
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch {
			case errors.Is(err, attendance.ErrDraftNotFound), remotesvc.IsNotFound(err):
				code = errHttpNotFound.Code
				message = errHttpNotFound.Message
			case errors.Is(err, attendance.ErrIndexOutOfRange):
				code = errInvalidIndex.Code
				message = errInvalidIndex.Message
			case errors.Is(err, attendance.ErrUnknownField):
				code = http.StatusBadRequest
				message = "champ inconnu"
			case errors.As(err, &statusErr):
				logger.Error(statusErr.Error(), err)
				code = errRemoteAPIFailed.Code
				message = errRemoteAPIFailed.Message
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), core.Fields{"path": ctx.Path()})

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
