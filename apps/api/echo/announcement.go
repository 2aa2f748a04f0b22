package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/announcement"
	"github.com/trezcool/chuo/core/audit"
)

type announcementApi struct {
	svc      announcement.ServiceInterface
	auditSvc audit.ServiceInterface
}

func registerAnnouncementAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc announcement.ServiceInterface, auditSvc audit.ServiceInterface) {
	api := announcementApi{svc: svc, auditSvc: auditSvc}

	ag := g.Group("/announcements", jwt)
	ag.GET("", api.query, staffMiddleware())
	ag.POST("", api.create, registrarMiddleware())
	ag.GET("/:id", api.retrieve, staffMiddleware())
	ag.PUT("/:id", api.update, registrarMiddleware())
	ag.DELETE("/:id", api.destroy, registrarMiddleware())
}

// Handlers

func (api *announcementApi) create(ctx echo.Context) error {
	var data announcement.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(ctx.Request().Context()); err != nil {
		return err
	}

	claims, _ := getContextClaims(ctx)
	ann, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	api.auditSvc.Record(ctx.Request().Context(), claims.Subject, audit.ActionCreate, "announcement", ann.ID, ann.Title)

	return ctx.JSON(http.StatusCreated, ann)
}

// query lists announcements visible to the caller; admins see everything.
func (api *announcementApi) query(ctx echo.Context) error {
	filter := new(announcement.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []announcement.Announcement{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	announcements, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}

	claims, _ := getContextClaims(ctx)
	visible := make([]announcement.Announcement, 0, len(announcements))
	for _, ann := range announcements {
		if ann.VisibleTo(claims.IsAdmin, claims.IsRegistrar, claims.IsProfessor) {
			visible = append(visible, ann)
		}
	}
	return ctx.JSON(http.StatusOK, visible)
}

func (api *announcementApi) retrieve(ctx echo.Context) error {
	ann, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == announcement.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding announcement by ID")
	}

	claims, _ := getContextClaims(ctx)
	if !ann.VisibleTo(claims.IsAdmin, claims.IsRegistrar, claims.IsProfessor) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, ann)
}

func (api *announcementApi) update(ctx echo.Context) error {
	orig, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == announcement.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding announcement by ID")
	}

	var data announcement.UpdateAnnouncement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAnnouncement")
	}
	if err = data.Validate(ctx.Request().Context(), orig); err != nil {
		return err
	}

	ann, err := api.svc.Update(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating announcement")
	}

	claims, _ := getContextClaims(ctx)
	api.auditSvc.Record(ctx.Request().Context(), claims.Subject, audit.ActionUpdate, "announcement", ann.ID, "")

	return ctx.JSON(http.StatusOK, ann)
}

func (api *announcementApi) destroy(ctx echo.Context) error {
	ann, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == announcement.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding announcement by ID")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ann.ID); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}

	claims, _ := getContextClaims(ctx)
	api.auditSvc.Record(ctx.Request().Context(), claims.Subject, audit.ActionDelete, "announcement", ann.ID, ann.Title)

	return ctx.NoContent(http.StatusNoContent)
}
