package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"classboard-api/domain"
	"classboard-api/session"
	"classboard-api/sheets"
)

// Sessions is the session lifecycle surface the handlers consume.
type Sessions interface {
	Login(ctx context.Context, username, password string) (*session.Session, error)
	Get(id string) (*session.Session, bool)
	Logout(ctx context.Context, id string)
	CheckScope(s *session.Session, class, subject string) error
	ChangePassword(ctx context.Context, username, current, next string) error
}

// SheetStore reads sheets through the cache.
type SheetStore interface {
	Get(ctx context.Context, sheet string) ([]sheets.Record, error)
	GetFresh(ctx context.Context, sheet string) ([]sheets.Record, error)
	Invalidate(ctx context.Context, sheet string)
}

// Appender writes rows to the remote store.
type Appender interface {
	Append(ctx context.Context, sheet string, row []any) error
}

// Authenticator issues and validates session tokens.
type Authenticator interface {
	Issue(s *session.Session) (string, error)
	SessionIDFromAuthHeader(h string) (string, error)
}

var validate = validator.New()

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, sessions Sessions, store SheetStore, appender Appender, auth Authenticator, logger *log.Logger) {
	e.POST("/api/login", postLogin(sessions, auth))
	e.POST("/api/logout", postLogout(sessions, auth))
	e.POST("/api/password", postPassword(sessions))
	e.GET("/api/tasks", getTasks(sessions, store, auth, logger))
	e.GET("/api/courses", getCourses(sessions, store, auth))
	e.GET("/api/schedule", getSchedule(sessions, store, auth))
	e.GET("/api/admin/tasks", getAdminTasks(sessions, store, auth))
	e.POST("/api/admin/tasks", postAdminTask(sessions, store, appender, auth))
	e.POST("/api/progress", postProgress(sessions, store, appender, auth))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid body")
	}
	if err := validate.Struct(dst); err != nil {
		return errors.New("missing or invalid fields")
	}
	return nil
}

func resolveSession(c echo.Context, sessions Sessions, auth Authenticator) (*session.Session, error) {
	sid, err := auth.SessionIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return nil, err
	}
	s, ok := sessions.Get(sid)
	if !ok {
		return nil, session.ErrNoSession
	}
	return s, nil
}

// storeErrorStatus maps an upstream failure onto the response status. Every
// store failure is confined to the view that needed the data; it never takes
// other views down.
func storeErrorStatus(err error) int {
	var se *sheets.Error
	if errors.As(err, &se) && se.Kind == sheets.KindRemote {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func postLogin(sessions Sessions, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}

		s, err := sessions.Login(c.Request().Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, session.ErrAuthFailed) {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
			}
			c.Logger().Error(err)
			return c.JSON(storeErrorStatus(err), errorResponse{Error: "login temporarily unavailable"})
		}

		token, err := auth.Issue(s)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "could not issue token"})
		}

		resp := loginResponse{
			Token:    token,
			Username: s.User.Username,
			FullName: s.User.FullName,
			Role:     s.User.Role,
		}
		if s.User.IsAdmin() {
			resp.Classes = s.Scope.Classes()
		} else {
			resp.Class = s.User.Class
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func postLogout(sessions Sessions, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		sid, err := auth.SessionIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		sessions.Logout(c.Request().Context(), sid)
		return c.NoContent(http.StatusNoContent)
	}
}

func postPassword(sessions Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req changePasswordRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		err := sessions.ChangePassword(c.Request().Context(), req.Username, req.Current, req.New)
		if err != nil {
			if errors.Is(err, session.ErrAuthFailed) {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
			}
			c.Logger().Error(err)
			return c.JSON(storeErrorStatus(err), errorResponse{Error: "password change failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getTasks(sessions Sessions, store SheetStore, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newViewRequestMetrics(ctx, logger, "/api/tasks")
		c.SetRequest(c.Request().WithContext(spanCtx))
		ctx = spanCtx
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		s, authErr := resolveSession(c, sessions, auth)
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.JSON(http.StatusUnauthorized, errorResponse{Error: authErr.Error()})
			return err
		}

		// Tasks and progress are independent reads; issue both and join
		// before reconciling.
		var taskRows, progressRows []sheets.Record
		fetchStart := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rows, err := store.Get(gctx, sheets.TaskSheet(s.User.Class))
			taskRows = rows
			return err
		})
		g.Go(func() error {
			rows, err := store.Get(gctx, sheets.ProgressSheet(s.User.Username))
			progressRows = rows
			return err
		})
		fetchErr := g.Wait()
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("store")
			c.Logger().Error(fetchErr)
			err = c.JSON(storeErrorStatus(fetchErr), errorResponse{Error: fetchErr.Error()})
			return err
		}

		reconcileStart := time.Now()
		tasks := domain.ParseTasks(taskRows)
		progress := domain.ParseProgress(progressRows)
		today := time.Now()

		groups := domain.GroupBySubject(tasks, progress)
		views := make([]subjectGroupView, 0, len(groups))
		for _, grp := range groups {
			view := subjectGroupView{Subject: grp.Subject, Completed: grp.Completed}
			for _, t := range grp.Tasks {
				view.Tasks = append(view.Tasks, domain.ReconcileTask(t, progress, today))
			}
			views = append(views, view)
		}
		resp := tasksViewResponse{
			Subjects: views,
			Points:   domain.SubjectPoints(tasks, progress),
			Progress: domain.AggregateProgress(progress, domain.ItemTask, len(tasks)),
		}
		metrics.ObserveReconcile(time.Since(reconcileStart))
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, resp)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getCourses(sessions Sessions, store SheetStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		s, err := resolveSession(c, sessions, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}

		var courseRows, progressRows []sheets.Record
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rows, err := store.Get(gctx, sheets.CourseSheet(s.User.Class))
			courseRows = rows
			return err
		})
		g.Go(func() error {
			rows, err := store.Get(gctx, sheets.ProgressSheet(s.User.Username))
			progressRows = rows
			return err
		})
		if err := g.Wait(); err != nil {
			c.Logger().Error(err)
			return c.JSON(storeErrorStatus(err), errorResponse{Error: err.Error()})
		}

		courses := domain.ParseCourses(courseRows)
		progress := domain.ParseProgress(progressRows)
		views := make([]courseView, 0, len(courses))
		for _, course := range courses {
			views = append(views, courseView{Course: course, Completed: domain.CourseCompleted(course, progress)})
		}
		return c.JSON(http.StatusOK, coursesViewResponse{
			Courses:  views,
			Progress: domain.AggregateProgress(progress, domain.ItemCourse, len(courses)),
		})
	}
}

func getSchedule(sessions Sessions, store SheetStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := resolveSession(c, sessions, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		rows, err := store.Get(c.Request().Context(), sheets.ScheduleSheet(s.User.Class))
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(storeErrorStatus(err), errorResponse{Error: err.Error()})
		}
		entries := domain.ParseSchedule(rows)
		return c.JSON(http.StatusOK, scheduleViewResponse{
			Entries: entries,
			Today:   domain.TodaySubjects(entries, time.Now().Weekday()),
		})
	}
}

func getAdminTasks(sessions Sessions, store SheetStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := resolveSession(c, sessions, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		class := c.QueryParam("class")
		subject := c.QueryParam("subject")
		if err := sessions.CheckScope(s, class, subject); err != nil {
			return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
		}

		rows, err := store.Get(c.Request().Context(), sheets.TaskSheet(class))
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(storeErrorStatus(err), errorResponse{Error: err.Error()})
		}

		today := time.Now()
		states := []domain.TaskState{}
		for _, t := range domain.ParseTasks(rows) {
			if !strings.EqualFold(t.Subject, subject) {
				continue
			}
			states = append(states, domain.ReconcileTask(t, nil, today))
		}
		return c.JSON(http.StatusOK, adminTasksResponse{Tasks: states})
	}
}

func postAdminTask(sessions Sessions, store SheetStore, appender Appender, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := resolveSession(c, sessions, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		if err := sessions.CheckScope(s, req.Class, req.Subject); err != nil {
			return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
		}

		ctx := c.Request().Context()
		sheet := sheets.TaskSheet(req.Class)

		// The id must come from the live sheet, not a cached copy, or two
		// admins could mint the same id.
		rows, err := store.GetFresh(ctx, sheet)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(storeErrorStatus(err), errorResponse{Error: err.Error()})
		}
		taskID := domain.NextTaskID(domain.ParseTasks(rows))

		row := []any{taskID, req.Subject, req.Title, req.Description, req.DueDate}
		if err := appender.Append(ctx, sheet, row); err != nil {
			c.Logger().Error(err)
			return c.JSON(storeErrorStatus(err), errorResponse{Error: err.Error()})
		}
		store.Invalidate(ctx, sheet)

		return c.JSON(http.StatusCreated, createTaskResponse{TaskID: taskID})
	}
}

func postProgress(sessions Sessions, store SheetStore, appender Appender, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := resolveSession(c, sessions, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req markCompleteRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}

		ctx := c.Request().Context()
		sheet := sheets.ProgressSheet(s.User.Username)
		row := []any{
			req.ItemID,
			req.ItemType,
			domain.StatusComplete,
			time.Now().UTC().Format("2006-01-02"),
			req.Grade,
		}
		if err := appender.Append(ctx, sheet, row); err != nil {
			c.Logger().Error(err)
			return c.JSON(storeErrorStatus(err), errorResponse{Error: err.Error()})
		}
		store.Invalidate(ctx, sheet)
		return c.NoContent(http.StatusCreated)
	}
}
