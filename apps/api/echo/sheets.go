package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/formationpro/fichepresence/core"
	"github.com/formationpro/fichepresence/core/attendance"
	notifysvc "github.com/formationpro/fichepresence/services/notify"
)

type (
	sheetApi struct {
		svc      *attendance.Service
		registry *attendance.Registry
		validate *validator.Validate
		baseURL  string
	}

	DocumentResponse struct {
		attendance.Document
		URL string `json:"url"`
	}

	PageResponse struct {
		Items      []DocumentResponse `json:"items"`
		Page       int                `json:"page"`
		TotalPages int                `json:"total_pages"`
		Total      int                `json:"total"`
		Search     string             `json:"search"`
		HasPrev    bool               `json:"has_prev"`
		HasNext    bool               `json:"has_next"`
	}

	DeleteResponse struct {
		Notifications []core.Notification `json:"notifications"`
	}
)

func registerSheetAPI(
	g *echo.Group,
	svc *attendance.Service,
	registry *attendance.Registry,
	validate *validator.Validate,
	baseURL string,
) {
	api := sheetApi{
		svc:      svc,
		registry: registry,
		validate: validate,
		baseURL:  baseURL,
	}

	sg := g.Group("/sheets")
	sg.POST("/generate", api.generate)
	sg.GET("", api.query)
	sg.DELETE("", api.destroyMultiple)
	sg.DELETE("/:id", api.destroy)
}

// Handlers

// generate renders a sheet posted as is, linked to the `id_session` param.
func (api *sheetApi) generate(ctx echo.Context) error {
	sheet, err := bindSheet(ctx, api.validate)
	if err != nil {
		return errors.Wrap(err, "binding to Sheet")
	}
	return generateSheet(ctx, api.svc, ctx.QueryParam(sessionParam), sheet)
}

// query returns the current registry page, fetching the stored sheets on first use or when asked.
// A failed fetch is logged and the last known list is served.
func (api *sheetApi) query(ctx echo.Context) error {
	var q RegistryQuery
	q.Bind(ctx)

	if q.Refresh || !api.registry.Loaded() {
		_ = api.registry.Refresh(ctx.Request().Context())
	}
	if q.Search != nil {
		api.registry.Search(*q.Search)
	}
	if q.Page != 0 {
		api.registry.GoTo(q.Page)
	}

	return ctx.JSON(http.StatusOK, api.pageResponse(api.registry.Current()))
}

func (api *sheetApi) destroy(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errInvalidSheetID
	}
	return api.delete(ctx, []int{id})
}

func (api *sheetApi) destroyMultiple(ctx echo.Context) error {
	ids, err := bindSheetIDs(ctx)
	if err != nil {
		return err
	}
	return api.delete(ctx, ids)
}

// delete answers with the notifications of every deletion; 502 if any failed.
func (api *sheetApi) delete(ctx echo.Context, ids []int) error {
	notifier := notifysvc.NewRecorder()
	code := http.StatusOK
	if err := api.registry.DeleteMany(ctx.Request().Context(), ids, notifier); err != nil {
		code = http.StatusBadGateway
	}
	notes := notifier.Notifications()
	setNotificationHeaders(ctx, notes)
	return ctx.JSON(code, DeleteResponse{Notifications: notes})
}

func (api *sheetApi) pageResponse(page attendance.Page) PageResponse {
	items := make([]DocumentResponse, 0, len(page.Items))
	for _, doc := range page.Items {
		items = append(items, DocumentResponse{Document: doc, URL: doc.URL(api.baseURL)})
	}
	return PageResponse{
		Items:      items,
		Page:       page.Page,
		TotalPages: page.TotalPages,
		Total:      page.Total,
		Search:     page.Search,
		HasPrev:    page.Page > 1,
		HasNext:    page.Page < page.TotalPages,
	}
}

// generateSheet runs the generation pipeline and downloads the resulting PDF.
// The upload outcome is exposed in the notification headers.
func generateSheet(ctx echo.Context, svc *attendance.Service, sessionID string, sheet attendance.Sheet) error {
	notifier := notifysvc.NewRecorder()
	deliver := func(art attendance.Artifact) error {
		setNotificationHeaders(ctx, notifier.Notifications())
		return attachment(ctx, art)
	}
	if _, err := svc.Generate(ctx.Request().Context(), sessionID, sheet, notifier, deliver); err != nil {
		return errors.Wrap(err, "generating sheet")
	}
	return nil
}
