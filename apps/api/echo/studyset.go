package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kitabu/studyhall/core/studyset"
	"github.com/kitabu/studyhall/core/user"
)

const noRecommendationMsg = "No recommendations available at this time."

type studySetApi struct {
	svc      studyset.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerStudySetAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc studyset.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := studySetApi{
		svc:      svc,
		userSvc:  userSvc,
		validate: validate,
	}

	sg := g.Group("/study-sets", jwt, portalMiddleware())

	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/recommendations/next", api.nextRecommendation, studentMiddleware())

	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)

	dg.GET("/questions", api.listQuestions)
	dg.POST("/questions", api.addQuestion)
	dg.PUT("/questions/:qid", api.updateQuestion)
	dg.DELETE("/questions/:qid", api.destroyQuestion)

	dg.POST("/attempts", api.recordAttempt)
	dg.POST("/assign", api.assign, teacherMiddleware())

	dg.POST("/offline", api.markOffline)
	dg.DELETE("/offline", api.unmarkOffline)
}

// Handlers

func (api *studySetApi) create(ctx echo.Context) error {
	var data studyset.NewStudySet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudySet")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	set, err := api.svc.Create(ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating study set")
	}
	return ctx.JSON(http.StatusCreated, set)
}

func (api *studySetApi) query(ctx echo.Context) error {
	filter := new(studyset.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []studyset.StudySetInfo{})
	}
	filter.Clean()

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	infos, err := api.svc.Query(ctxUsr, filter)
	if err != nil {
		return errors.Wrap(err, "querying study sets")
	}
	if infos == nil {
		infos = []studyset.StudySetInfo{}
	}
	return ctx.JSON(http.StatusOK, infos)
}

func (api *studySetApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	set, err := api.svc.GetByID(ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting study set")
	}
	return ctx.JSON(http.StatusOK, set)
}

func (api *studySetApi) update(ctx echo.Context) error {
	var data studyset.UpdateStudySet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudySet")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// omitted fields fall back to the stored values
	orig, err := api.svc.GetByID(ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting study set")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	set, err := api.svc.Update(ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating study set")
	}
	return ctx.JSON(http.StatusOK, set)
}

func (api *studySetApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting study set")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studySetApi) listQuestions(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	questions, err := api.svc.ListQuestions(ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing questions")
	}
	if questions == nil {
		questions = []studyset.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *studySetApi) addQuestion(ctx echo.Context) error {
	var data studyset.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	q, err := api.svc.AddQuestion(ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *studySetApi) updateQuestion(ctx echo.Context) error {
	var data studyset.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	q, err := api.svc.UpdateQuestion(ctxUsr, ctx.Param("id"), ctx.Param("qid"), data)
	if err != nil {
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *studySetApi) destroyQuestion(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.DeleteQuestion(ctxUsr, ctx.Param("id"), ctx.Param("qid")); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studySetApi) recordAttempt(ctx echo.Context) error {
	var data studyset.Attempt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Attempt")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.RecordAttempt(ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording attempt")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studySetApi) nextRecommendation(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rec, ok, err := api.svc.NextRecommendation(ctxUsr)
	if err != nil {
		return errors.Wrap(err, "computing recommendation")
	}
	if !ok {
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: noRecommendationMsg})
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *studySetApi) assign(ctx echo.Context) error {
	var data studyset.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	assignment, err := api.svc.Assign(ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "assigning study set")
	}
	return ctx.JSON(http.StatusCreated, assignment)
}

func (api *studySetApi) markOffline(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.MarkOffline(ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "marking study set offline")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studySetApi) unmarkOffline(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.UnmarkOffline(ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "unmarking study set offline")
	}
	return ctx.NoContent(http.StatusNoContent)
}
