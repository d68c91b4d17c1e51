package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/klasse-app/klasse-api/internal/config"
	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/handler"
	"github.com/klasse-app/klasse-api/internal/middleware"
	"github.com/klasse-app/klasse-api/internal/models"
	"github.com/klasse-app/klasse-api/internal/repository"
	"github.com/klasse-app/klasse-api/internal/router"
	"github.com/klasse-app/klasse-api/internal/service"
)

func setupClassroomApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Class{},
		&models.ClassTeacher{},
		&models.Unit{},
		&models.Assignment{},
		&models.Enrollment{},
		&models.Submission{},
		&models.Grade{},
		&models.Notification{},
		&models.Comment{},
		&models.ActivityLog{},
	))

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	log := zerolog.New(io.Discard)

	classRepo := repository.NewClassRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, log)
	notificationService := service.NewNotificationService(notificationRepo, nil, "", nil, log)
	classService := service.NewClassService(classRepo, validate, activityService, log)
	unitService := service.NewUnitService(unitRepo, classRepo, validate, log)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, classRepo, validate, log)
	assignmentService := service.NewAssignmentService(assignmentRepo, classRepo, enrollmentRepo, validate, notificationService, activityService, log)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, enrollmentRepo, classRepo, validate, notificationService, log)
	gradingService := service.NewGradingService(gradeRepo, submissionRepo, classRepo, validate, notificationService, activityService, log)
	reportService := service.NewReportService(assignmentRepo, enrollmentRepo, submissionRepo, classRepo, redisClient, time.Minute, log)
	commentService := service.NewCommentService(commentRepo, submissionRepo, classRepo, validate, notificationService, log)
	userService := service.NewUserService(userRepo, validate, log)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &log})

	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		ClassHandler:        handler.NewClassHandler(classService, unitService, log),
		UnitHandler:         handler.NewUnitHandler(unitService, log),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, log),
		EnrollmentHandler:   handler.NewEnrollmentHandler(enrollmentService, log),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, nil, log),
		GradingHandler:      handler.NewGradingHandler(gradingService, log),
		ReportHandler:       handler.NewReportHandler(reportService, log),
		NotificationHandler: handler.NewNotificationHandler(notificationService, log, time.Second),
		CommentHandler:      handler.NewCommentHandler(commentService, log),
		UserHandler:         handler.NewUserHandler(userService, log),
		JWTMiddleware: func(c *fiber.Ctx) error {
			if id, err := strconv.ParseUint(c.Get("X-Test-User"), 10, 64); err == nil {
				c.Locals("user_id", uint(id))
			}
			if role := c.Get("X-Test-Role"); role != "" {
				c.Locals("user_role", role)
			}
			return c.Next()
		},
	})

	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, userID uint, role string, payload interface{}) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Test-User", strconv.Itoa(int(userID)))
	req.Header.Set("X-Test-Role", role)

	res, err := app.Test(req, 5000)
	require.NoError(t, err)

	return res
}

func decode[T any](t *testing.T, res *http.Response, target *T) {
	t.Helper()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

func TestClassroomEndToEndFlow(t *testing.T) {
	app, db := setupClassroomApp(t)

	teacher := models.User{Username: "mrs.keller", FirstName: "Ana", LastName: "Keller", Role: models.RoleTeacher}
	student := models.User{Username: "jona", FirstName: "Jona", LastName: "Brandt", Role: models.RoleStudent}
	slacker := models.User{Username: "milo", FirstName: "Milo", LastName: "Winter", Role: models.RoleStudent}
	require.NoError(t, db.Create(&teacher).Error)
	require.NoError(t, db.Create(&student).Error)
	require.NoError(t, db.Create(&slacker).Error)

	// Step 1: teacher creates a class and receives an enrollment code.
	res := doJSON(t, app, http.MethodPost, "/api/v1/classes", teacher.ID, "teacher", map[string]interface{}{
		"title": "Geography 7b",
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	var classResp struct {
		Success bool              `json:"success"`
		Data    dto.ClassResponse `json:"data"`
	}
	decode(t, res, &classResp)
	require.True(t, classResp.Success)
	require.Len(t, classResp.Data.EnrollmentCode, models.EnrollmentCodeLength)

	classID := classResp.Data.ID
	code := classResp.Data.EnrollmentCode

	// Step 2: both students redeem the code; a second redemption conflicts.
	for _, studentID := range []uint{student.ID, slacker.ID} {
		res = doJSON(t, app, http.MethodPost, "/api/v1/enrollments/redeem", studentID, "student", map[string]interface{}{"code": code})
		require.Equal(t, fiber.StatusCreated, res.StatusCode)
		res.Body.Close()
	}

	res = doJSON(t, app, http.MethodPost, "/api/v1/enrollments/redeem", student.ID, "student", map[string]interface{}{"code": code})
	require.Equal(t, fiber.StatusConflict, res.StatusCode)
	res.Body.Close()

	// Step 3: teacher creates and publishes an assignment.
	res = doJSON(t, app, http.MethodPost, "/api/v1/assignments", teacher.ID, "teacher", map[string]interface{}{
		"class_id":  classID,
		"title":     "River mapping",
		"max_score": 50,
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	var assignmentResp struct {
		Success bool                   `json:"success"`
		Data    dto.AssignmentResponse `json:"data"`
	}
	decode(t, res, &assignmentResp)
	assignmentID := assignmentResp.Data.ID

	// Submitting against an unpublished assignment is rejected.
	res = doJSON(t, app, http.MethodPost, "/api/v1/submissions", student.ID, "student", map[string]interface{}{
		"assignment_id": assignmentID,
		"content":       "too early",
		"finalize":      true,
	})
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/assignments/%d/publish", assignmentID), teacher.ID, "teacher", map[string]interface{}{"publish": true})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var publishResp struct {
		Data dto.AssignmentResponse `json:"data"`
	}
	decode(t, res, &publishResp)
	require.True(t, publishResp.Data.IsPublished)

	// Step 4: the student drafts, then finalizes.
	res = doJSON(t, app, http.MethodPost, "/api/v1/submissions", student.ID, "student", map[string]interface{}{
		"assignment_id": assignmentID,
		"content":       "half-finished notes",
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, app, http.MethodPost, "/api/v1/submissions", student.ID, "student", map[string]interface{}{
		"assignment_id": assignmentID,
		"content":       "the Rhine starts in the Alps",
		"finalize":      true,
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	var submissionResp struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
	}
	decode(t, res, &submissionResp)
	require.Equal(t, models.SubmissionStatusSubmitted, submissionResp.Data.Status)
	submissionID := submissionResp.Data.ID

	// Step 5: the missing report names only the student who never submitted.
	res = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/reports/assignments/%d/missing", assignmentID), teacher.ID, "teacher", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var missingResp struct {
		Data dto.MissingSubmissionsReport `json:"data"`
	}
	decode(t, res, &missingResp)
	require.Len(t, missingResp.Data.Missing, 1)
	require.Equal(t, slacker.ID, missingResp.Data.Missing[0].StudentID)

	// Step 6: teacher grades; grading twice with the same payload stays stable.
	for i := 0; i < 2; i++ {
		res = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/submissions/%d/grade", submissionID), teacher.ID, "teacher", map[string]interface{}{
			"score":    42,
			"feedback": "solid work",
		})
		require.Equal(t, fiber.StatusOK, res.StatusCode)

		var gradeResp struct {
			Data dto.GradeResponse `json:"data"`
		}
		decode(t, res, &gradeResp)
		require.Equal(t, 42.0, gradeResp.Data.Score)
	}

	var gradeCount int64
	require.NoError(t, db.Model(&models.Grade{}).Where("submission_id = ?", submissionID).Count(&gradeCount).Error)
	require.EqualValues(t, 1, gradeCount)

	// Step 7: the graded submission surfaces in the student's view with its grade.
	res = doJSON(t, app, http.MethodGet, "/api/v1/submissions/mine", student.ID, "student", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var mineResp struct {
		Data []dto.SubmissionResponse `json:"data"`
	}
	decode(t, res, &mineResp)
	require.Len(t, mineResp.Data, 1)
	require.Equal(t, models.SubmissionStatusGraded, mineResp.Data[0].Status)
	require.NotNil(t, mineResp.Data[0].Grade)
	require.Equal(t, 42.0, mineResp.Data[0].Grade.Score)

	// Step 8: the student got a graded notification along the way.
	res = doJSON(t, app, http.MethodGet, "/api/v1/notifications/", student.ID, "student", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var notificationsResp struct {
		Data []dto.NotificationResponse `json:"data"`
	}
	decode(t, res, &notificationsResp)

	var sawGraded bool
	for _, notification := range notificationsResp.Data {
		if notification.Type == models.NotificationAssignmentGraded {
			sawGraded = true
		}
	}
	require.True(t, sawGraded)
}

func TestClassroomRoleGates(t *testing.T) {
	app, db := setupClassroomApp(t)

	student := models.User{Username: "jona", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	// Students cannot touch the class management surface.
	res := doJSON(t, app, http.MethodPost, "/api/v1/classes", student.ID, "student", map[string]interface{}{"title": "Sneaky"})
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, app, http.MethodGet, "/api/v1/reports/grading-summary", student.ID, "student", nil)
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)
	res.Body.Close()
}

func TestClassDeletionCascadeEndToEnd(t *testing.T) {
	app, db := setupClassroomApp(t)

	teacher := models.User{Username: "mrs.keller", Role: models.RoleTeacher}
	student := models.User{Username: "jona", Role: models.RoleStudent}
	require.NoError(t, db.Create(&teacher).Error)
	require.NoError(t, db.Create(&student).Error)

	res := doJSON(t, app, http.MethodPost, "/api/v1/classes", teacher.ID, "teacher", map[string]interface{}{"title": "Doomed"})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	var classResp struct {
		Data dto.ClassResponse `json:"data"`
	}
	decode(t, res, &classResp)

	res = doJSON(t, app, http.MethodPost, "/api/v1/enrollments/redeem", student.ID, "student", map[string]interface{}{"code": classResp.Data.EnrollmentCode})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, app, http.MethodPost, "/api/v1/assignments", teacher.ID, "teacher", map[string]interface{}{
		"class_id": classResp.Data.ID,
		"title":    "Essay",
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/classes/%d", classResp.Data.ID), teacher.ID, "teacher", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	res.Body.Close()

	for model, name := range map[interface{}]string{
		&models.Class{}:      "classes",
		&models.Assignment{}: "assignments",
		&models.Enrollment{}: "enrollments",
	} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error, name)
		require.Zero(t, count, name)
	}
}
