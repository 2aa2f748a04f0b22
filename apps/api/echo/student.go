package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/document"
	"github.com/trezcool/chuo/core/student"
)

var errStuNotFoundInCtx = errors.New("student object not found in echo.Context")

type studentApi struct {
	svc      student.ServiceInterface
	docSvc   document.ServiceInterface
	auditSvc audit.ServiceInterface
}

func registerStudentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc student.ServiceInterface,
	docSvc document.ServiceInterface,
	auditSvc audit.ServiceInterface,
) {
	api := studentApi{svc: svc, docSvc: docSvc, auditSvc: auditSvc}

	sg := g.Group("/students", jwt)

	sg.POST("", api.create, registrarMiddleware())
	sg.GET("", api.query, staffMiddleware())
	sg.GET("/courses", api.queryCourses, staffMiddleware())
	sg.GET("/next-number", api.nextNumber, registrarMiddleware())

	// detail endpoints
	dg := sg.Group("/:id", studentObjectMiddleware(api.svc))
	dg.GET("", api.retrieve, staffMiddleware())
	dg.PUT("", api.update, registrarMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())

	// attached document metadata
	dg.GET("/documents", api.queryDocuments, staffMiddleware())
	dg.POST("/documents", api.createDocument, registrarMiddleware())
	dg.DELETE("/documents/:docID", api.destroyDocument, registrarMiddleware())
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.svc); err != nil {
		return err
	}

	stu, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		if student.IsAllocationError(err) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return errors.Wrap(err, "creating student")
	}

	claims, _ := getContextClaims(ctx)
	api.auditSvc.Record(ctx.Request().Context(), claims.Subject, audit.ActionCreate, "student", stu.ID, "registered "+stu.Number)

	return ctx.JSON(http.StatusCreated, stu)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) queryCourses(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, student.Courses())
}

// nextNumber previews the sequence the next registration would take for a
// course and school year. Purely informational; the actual number is only
// fixed at registration time.
func (api *studentApi) nextNumber(ctx echo.Context) error {
	courseID, err := strconv.Atoi(ctx.QueryParam("course_id"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "a valid course ID is required"})
	}
	schoolYear := core.CleanString(ctx.QueryParam("school_year"))

	seq, err := api.svc.NextSequence(ctx.Request().Context(), courseID, schoolYear)
	if err != nil {
		if errors.Cause(err) == student.ErrInvalidSchoolYear {
			return core.NewValidationError(nil, core.FieldError{Field: "school_year", Error: err.Error()})
		}
		return errors.Wrap(err, "peeking next sequence")
	}
	return ctx.JSON(http.StatusOK, NextNumberResponse{
		CourseCode:   student.CourseCode(courseID),
		SchoolYear:   schoolYear,
		NextSequence: seq,
	})
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	stu, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStuNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *studentApi) update(ctx echo.Context) error {
	stu, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStuNotFoundInCtx, "retrieving object from context")
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(ctx.Request().Context(), stu, api.svc); err != nil {
		return err
	}

	stu, err := api.svc.Update(ctx.Request().Context(), stu.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}

	claims, _ := getContextClaims(ctx)
	api.auditSvc.Record(ctx.Request().Context(), claims.Subject, audit.ActionUpdate, "student", stu.ID, "")

	return ctx.JSON(http.StatusOK, stu)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	stu, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStuNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), stu.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}

	claims, _ := getContextClaims(ctx)
	api.auditSvc.Record(ctx.Request().Context(), claims.Subject, audit.ActionDelete, "student", stu.ID, stu.Number)

	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) queryDocuments(ctx echo.Context) error {
	stu, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStuNotFoundInCtx, "retrieving object from context")
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	documents, err := api.docSvc.QueryByStudent(ctx.Request().Context(), stu.ID, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying documents")
	}
	if documents == nil {
		documents = []document.Document{}
	}
	return ctx.JSON(http.StatusOK, documents)
}

func (api *studentApi) createDocument(ctx echo.Context) error {
	stu, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStuNotFoundInCtx, "retrieving object from context")
	}

	var data document.NewDocument
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDocument")
	}
	if err := data.Validate(ctx.Request().Context()); err != nil {
		return err
	}

	claims, _ := getContextClaims(ctx)
	doc, err := api.docSvc.Create(ctx.Request().Context(), stu.ID, data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating document")
	}
	api.auditSvc.Record(ctx.Request().Context(), claims.Subject, audit.ActionCreate, "document", doc.ID, doc.Name)

	return ctx.JSON(http.StatusCreated, doc)
}

func (api *studentApi) destroyDocument(ctx echo.Context) error {
	stu, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStuNotFoundInCtx, "retrieving object from context")
	}

	doc, err := api.docSvc.GetByID(ctx.Request().Context(), ctx.Param("docID"))
	if err != nil || doc.StudentID != stu.ID {
		return errHttpNotFound
	}

	if err = api.docSvc.Delete(ctx.Request().Context(), doc.ID); err != nil {
		return errors.Wrap(err, "deleting document")
	}

	claims, _ := getContextClaims(ctx)
	api.auditSvc.Record(ctx.Request().Context(), claims.Subject, audit.ActionDelete, "document", doc.ID, doc.Name)

	return ctx.NoContent(http.StatusNoContent)
}

func studentObjectMiddleware(svc student.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			stu, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == student.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding student by ID")
			}
			ctx.Set("object", stu)
			return next(ctx)
		}
	}
}

type NextNumberResponse struct {
	CourseCode   string `json:"course_code"`
	SchoolYear   string `json:"school_year"`
	NextSequence int64  `json:"next_sequence"`
}
