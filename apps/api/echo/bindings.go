package echoapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/formationpro/fichepresence/core"
	"github.com/formationpro/fichepresence/core/attendance"
)

var (
	sessionParam = "id_session"
	searchParam  = "search"
	pageParam    = "page"
	refreshParam = "refresh"
	idParam      = "id"

	notificationHeader        = "X-Notification"
	notificationMessageHeader = "X-Notification-Message"
)

// FieldUpdate sets a single field of a time slot or a participant.
type FieldUpdate struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

func (fu *FieldUpdate) Validate(validate *validator.Validate) error {
	fu.Field = core.CleanString(fu.Field, true /* lower */)
	return validate.Struct(fu)
}

// RegistryQuery holds the query params of the registry listing.
// Search is nil when the param is absent, so that the current search is kept.
type RegistryQuery struct {
	Search  *string
	Page    int
	Refresh bool
}

func (q *RegistryQuery) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	if val, ok := data[searchParam]; ok {
		var term string
		if len(val) > 0 {
			term = val[0]
		}
		q.Search = &term
	}
	if p, err := strconv.Atoi(data.Get(pageParam)); err == nil {
		q.Page = p
	}
	q.Refresh, _ = strconv.ParseBool(data.Get(refreshParam))
}

// bindSheetIDs reads the repeated `id` query param of a bulk deletion.
func bindSheetIDs(ctx echo.Context) ([]int, error) {
	vals := ctx.QueryParams()[idParam]
	ids := make([]int, 0, len(vals))
	for _, val := range vals {
		for _, s := range strings.Split(val, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return nil, errInvalidSheetID
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errInvalidSheetID
	}
	return ids, nil
}

func bindIndex(ctx echo.Context) (int, error) {
	idx, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return 0, errInvalidIndex
	}
	return idx, nil
}

func bindSheet(ctx echo.Context, validate *validator.Validate) (attendance.Sheet, error) {
	var sheet attendance.Sheet
	if err := ctx.Bind(&sheet); err != nil {
		return sheet, err
	}
	sheet = sheet.Clean()
	if err := sheet.Validate(validate); err != nil {
		return sheet, err
	}
	return sheet, nil
}

// setNotificationHeaders exposes the latest notification to the client.
func setNotificationHeaders(ctx echo.Context, notes []core.Notification) {
	if len(notes) == 0 {
		return
	}
	last := notes[len(notes)-1]
	h := ctx.Response().Header()
	h.Set(notificationHeader, string(last.Level))
	h.Set(notificationMessageHeader, url.QueryEscape(last.Message))
}

// attachment sends the artifact as a file download.
func attachment(ctx echo.Context, art attendance.Artifact) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(
		`attachment; filename="%s"; filename*=UTF-8''%s`,
		asciiFileName(art.FileName), url.PathEscape(art.FileName),
	))
	return ctx.Blob(http.StatusOK, art.ContentType, art.Content)
}

// asciiFileName replaces the characters old clients can't read in a quoted file name.
func asciiFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
}
