package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/formationpro/fichepresence/core/attendance"
)

type draftApi struct {
	svc      *attendance.Service
	validate *validator.Validate
}

func registerDraftAPI(g *echo.Group, svc *attendance.Service, validate *validator.Validate) {
	api := draftApi{
		svc:      svc,
		validate: validate,
	}

	dg := g.Group("/drafts")
	dg.POST("", api.create)

	// detail endpoints
	ig := dg.Group("/:id")
	ig.GET("", api.retrieve)
	ig.DELETE("", api.destroy)
	ig.PUT("/meta", api.updateMeta)
	ig.POST("/generate", api.generate)

	ig.POST("/slots", api.addSlot)
	ig.PATCH("/slots/:index", api.updateSlot)
	ig.DELETE("/slots/:index", api.removeSlot)

	ig.POST("/participants", api.addParticipant)
	ig.PATCH("/participants/:index", api.updateParticipant)
	ig.DELETE("/participants/:index", api.removeParticipant)
}

// Handlers

// create opens a new draft. A session that can't be fetched still gives a blank draft.
func (api *draftApi) create(ctx echo.Context) error {
	draft, err := api.svc.NewDraft(ctx.Request().Context(), ctx.QueryParam(sessionParam))
	if err != nil {
		return errors.Wrap(err, "creating draft")
	}
	return ctx.JSON(http.StatusCreated, draft)
}

func (api *draftApi) retrieve(ctx echo.Context) error {
	draft, err := api.svc.GetDraft(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting draft")
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *draftApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteDraft(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting draft")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *draftApi) updateMeta(ctx echo.Context) error {
	var meta attendance.SessionMeta
	if err := ctx.Bind(&meta); err != nil {
		return errors.Wrap(err, "binding to SessionMeta")
	}
	draft, err := api.svc.SetMeta(ctx.Request().Context(), ctx.Param("id"), meta)
	if err != nil {
		return errors.Wrap(err, "updating draft meta")
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *draftApi) addSlot(ctx echo.Context) error {
	draft, err := api.svc.AddTimeSlot(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "adding time slot")
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *draftApi) updateSlot(ctx echo.Context) error {
	idx, data, err := api.bindUpdate(ctx)
	if err != nil {
		return err
	}
	draft, err := api.svc.UpdateTimeSlot(ctx.Request().Context(), ctx.Param("id"), idx, data.Field, data.Value)
	if err != nil {
		return errors.Wrap(err, "updating time slot")
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *draftApi) removeSlot(ctx echo.Context) error {
	idx, err := bindIndex(ctx)
	if err != nil {
		return err
	}
	draft, err := api.svc.RemoveTimeSlot(ctx.Request().Context(), ctx.Param("id"), idx)
	if err != nil {
		return errors.Wrap(err, "removing time slot")
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *draftApi) addParticipant(ctx echo.Context) error {
	draft, err := api.svc.AddParticipant(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "adding participant")
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *draftApi) updateParticipant(ctx echo.Context) error {
	idx, data, err := api.bindUpdate(ctx)
	if err != nil {
		return err
	}
	draft, err := api.svc.UpdateParticipant(ctx.Request().Context(), ctx.Param("id"), idx, data.Field, data.Value)
	if err != nil {
		return errors.Wrap(err, "updating participant")
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *draftApi) removeParticipant(ctx echo.Context) error {
	idx, err := bindIndex(ctx)
	if err != nil {
		return err
	}
	draft, err := api.svc.RemoveParticipant(ctx.Request().Context(), ctx.Param("id"), idx)
	if err != nil {
		return errors.Wrap(err, "removing participant")
	}
	return ctx.JSON(http.StatusOK, draft)
}

// generate validates the draft's sheet, then renders, uploads and downloads it.
func (api *draftApi) generate(ctx echo.Context) error {
	draft, err := api.svc.GetDraft(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting draft")
	}
	sheet := draft.Sheet.Clean()
	if err = sheet.Validate(api.validate); err != nil {
		return err
	}
	return generateSheet(ctx, api.svc, draft.SessionID, sheet)
}

func (api *draftApi) bindUpdate(ctx echo.Context) (int, FieldUpdate, error) {
	var data FieldUpdate
	idx, err := bindIndex(ctx)
	if err != nil {
		return 0, data, err
	}
	if err = ctx.Bind(&data); err != nil {
		return 0, data, errors.Wrap(err, "binding to FieldUpdate")
	}
	if err = data.Validate(api.validate); err != nil {
		return 0, data, err
	}
	return idx, data, nil
}
