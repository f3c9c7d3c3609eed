package routes

import (
    "strconv"
    "time"

    "github.com/gin-gonic/gin"
    "gorm.io/gorm"

    "github.com/nkodex/examsync_backend/internal/config"
    "github.com/nkodex/examsync_backend/internal/controllers"
    "github.com/nkodex/examsync_backend/internal/middleware"
    "github.com/nkodex/examsync_backend/internal/recognition"
    syncsvc "github.com/nkodex/examsync_backend/internal/sync"
    "github.com/nkodex/examsync_backend/internal/ws"
)

func Register(r *gin.Engine, db *gorm.DB, cfg *config.Config, hub *ws.SyncHub, matcher recognition.FaceMatcher) {
    accessTTL, err := time.ParseDuration(cfg.AccessTokenTTLMinutes + "m")
    if err != nil || accessTTL == 0 {
        accessTTL = 60 * time.Minute
    }
    refreshDays, err := strconv.Atoi(cfg.RefreshTokenTTLDays)
    if err != nil || refreshDays <= 0 {
        refreshDays = 30
    }
    refreshTTL := time.Duration(refreshDays) * 24 * time.Hour

    service := syncsvc.NewService(db, hub)

    authCtrl := &controllers.AuthController{
        DB:            db,
        AccessSecret:  cfg.JWTSecret,
        RefreshSecret: cfg.RefreshJWTSecret,
        AccessTTL:     accessTTL,
        RefreshTTL:    refreshTTL,
    }
    examCtrl := &controllers.ExamController{DB: db}
    candCtrl := &controllers.CandidateController{DB: db}
    attCtrl := &controllers.AttendanceController{DB: db}
    bioCtrl := &controllers.BiometricController{DB: db, Matcher: matcher, MatchThreshold: cfg.MatchThreshold}
    fpCtrl := &controllers.FingerprintController{DB: db}
    syncCtrl := &controllers.SyncController{Service: service}

    // Public
    auth := r.Group("/api/v1/auth")
    {
        auth.POST("/login", authCtrl.Login)
        auth.POST("/refresh", authCtrl.Refresh)
    }

    // Protected
    authMW := middleware.AuthMiddleware(db, middleware.AuthConfig{
        JWTSecret:    cfg.JWTSecret,
        JWTExpiresIn: accessTTL,
    })
    api := r.Group("/api/v1", authMW)
    {
        api.GET("/auth/me", authCtrl.Me)
        api.POST("/auth/logout", authCtrl.Logout)

        // Admin-only
        admin := api.Group("/admin", middleware.RequireRoles("admin"))
        {
            admin.POST("/users", authCtrl.Register)

            admin.POST("/exams", examCtrl.CreateExam)
            admin.GET("/exams", examCtrl.ListExams)
            admin.GET("/exams/:examId", examCtrl.GetExam)
            admin.PUT("/exams/:examId", examCtrl.UpdateExam)

            admin.POST("/exams/:examId/candidates", candCtrl.Create)
            admin.GET("/exams/:examId/candidates", candCtrl.ListByExam)
            admin.GET("/candidates/:id", candCtrl.Get)

            admin.GET("/exams/:examId/attendance", attCtrl.ListByExam)
            admin.PUT("/attendance/:attendanceId/correct", attCtrl.Correct)
            admin.POST("/attendance/:attendanceId/eligible", middleware.MarkBiometricEligible(db), attCtrl.MarkEligible)

            // Conflict administration
            admin.GET("/exams/:examId/conflicts", syncCtrl.Conflicts)
            admin.GET("/exams/:examId/sync-statistics", syncCtrl.Statistics)
            admin.POST("/sync/conflicts/:conflictId/resolve", syncCtrl.Resolve)
            admin.DELETE("/sync/cleanup", syncCtrl.Cleanup)

            admin.POST("/biometrics/:candidateId/:examId/reverify", bioCtrl.Reverify)
        }

        // Operator device sync (and admin)
        syncGrp := api.Group("/sync", middleware.RequireRoles("operator", "admin"))
        {
            syncGrp.POST("/:examId/device", syncCtrl.SyncDevice)
            syncGrp.POST("/:examId/record", syncCtrl.SyncRecord)
            syncGrp.GET("/:examId/status", syncCtrl.Status)
            syncGrp.POST("/:examId/retry", syncCtrl.Retry)
        }

        // Attendance marking (operator and admin)
        attendance := api.Group("/attendance", middleware.RequireRoles("operator", "admin"))
        {
            attendance.POST("", attCtrl.Mark)
            attendance.PUT("/:attendanceId/complete", attCtrl.Complete)
        }

        // Capture endpoints sit behind the attendance eligibility gate.
        verification := api.Group("/verification", middleware.RequireRoles("operator", "admin"))
        {
            verification.POST("/biometric", middleware.EnforceAttendanceFirst(db), bioCtrl.Verify)
            verification.POST("/fingerprint", middleware.EnforceAttendanceFirst(db), fpCtrl.Capture)
        }

        reads := api.Group("", middleware.RequireRoles("operator", "admin"))
        {
            reads.GET("/biometrics/:candidateId/:examId", bioCtrl.Get)
            reads.GET("/fingerprints/:candidateId/:examId", fpCtrl.Get)
        }

        // Sync event stream for dashboards
        api.GET("/ws/sync", ws.SyncEventsHandler(hub))
    }
}
