package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kitabu/studyhall/core/classroom"
	"github.com/kitabu/studyhall/core/user"
)

type classApi struct {
	svc      classroom.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerClassAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc classroom.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := classApi{
		svc:      svc,
		userSvc:  userSvc,
		validate: validate,
	}

	cg := g.Group("/classes", jwt, portalMiddleware())

	cg.GET("", api.query)
	cg.POST("", api.create, teacherMiddleware())

	dg := cg.Group("/:id", teacherMiddleware())
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/students", api.listStudents)
	dg.POST("/students", api.addStudents)
	dg.DELETE("/students/:sid", api.removeStudent)
}

// Handlers

func (api *classApi) create(ctx echo.Context) error {
	var data classroom.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cls, err := api.svc.Create(ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	classes, err := api.svc.QueryForUser(ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []classroom.ClassInfo{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	orig, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}

	var data classroom.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	cls, err := api.svc.Update(ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) listStudents(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	students, err := api.svc.ListStudents(ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classApi) addStudents(ctx echo.Context) error {
	var data AddStudentsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddStudentsRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	added, skipped, err := api.svc.AddStudents(ctxUsr, ctx.Param("id"), data.StudentIDs)
	if err != nil {
		return errors.Wrap(err, "adding students")
	}
	return ctx.JSON(http.StatusOK, AddStudentsResponse{Added: added, Skipped: skipped})
}

func (api *classApi) removeStudent(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.RemoveStudent(ctxUsr, ctx.Param("id"), ctx.Param("sid")); err != nil {
		return errors.Wrap(err, "removing student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	AddStudentsRequest struct {
		StudentIDs []string `json:"studentIds" validate:"required,min=1"`
	}

	AddStudentsResponse struct {
		Added   []string `json:"added"`
		Skipped []string `json:"skipped"`
	}
)
