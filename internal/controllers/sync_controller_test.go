package controllers

import (
    "bytes"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/gin-gonic/gin"
    "github.com/google/uuid"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "gorm.io/driver/sqlite"
    "gorm.io/gorm"
    "gorm.io/gorm/logger"

    "github.com/nkodex/examsync_backend/internal/models"
    "github.com/nkodex/examsync_backend/internal/sync"
)

func testDB(t *testing.T) *gorm.DB {
    t.Helper()
    db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
        TranslateError: true,
        Logger:         logger.Default.LogMode(logger.Silent),
    })
    require.NoError(t, err)
    sqlDB, err := db.DB()
    require.NoError(t, err)
    sqlDB.SetMaxOpenConns(1)
    require.NoError(t, db.AutoMigrate(
        &models.Exam{},
        &models.Candidate{},
        &models.Attendance{},
        &models.Biometric{},
        &models.Fingerprint{},
        &models.SyncStatus{},
    ))
    return db
}

// fakeAuth injects the authenticated user the way AuthMiddleware would.
func fakeAuth(user models.User) gin.HandlerFunc {
    return func(c *gin.Context) {
        c.Set("user", user)
        c.Next()
    }
}

func syncRouter(db *gorm.DB, user models.User) *gin.Engine {
    gin.SetMode(gin.TestMode)
    svc := sync.NewService(db, nil)
    sc := &SyncController{Service: svc}

    r := gin.New()
    g := r.Group("/sync", fakeAuth(user))
    g.POST("/:examId/device", sc.SyncDevice)
    g.POST("/:examId/record", sc.SyncRecord)
    g.GET("/:examId/status", sc.Status)
    g.POST("/:examId/retry", sc.Retry)
    r.GET("/admin/exams/:examId/conflicts", fakeAuth(user), sc.Conflicts)
    r.POST("/admin/sync/conflicts/:conflictId/resolve", fakeAuth(user), sc.Resolve)
    return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
    t.Helper()
    var buf bytes.Buffer
    if body != nil {
        require.NoError(t, json.NewEncoder(&buf).Encode(body))
    }
    req := httptest.NewRequest(method, path, &buf)
    req.Header.Set("Content-Type", "application/json")
    w := httptest.NewRecorder()
    r.ServeHTTP(w, req)

    var resp map[string]interface{}
    if w.Body.Len() > 0 {
        require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
    }
    return w, resp
}

func TestSyncRecordCleanPush(t *testing.T) {
    db := testDB(t)
    operator := models.User{UserID: uuid.NewString(), Role: "operator"}
    r := syncRouter(db, operator)
    examID := uuid.NewString()

    w, resp := doJSON(t, r, http.MethodPost, "/sync/"+examID+"/record", gin.H{
        "entityType": "candidate",
        "rollNo":     "R001",
        "name":       "Asha Verma",
    })
    require.Equal(t, http.StatusOK, w.Code)
    assert.Equal(t, true, resp["success"])
    assert.NotEmpty(t, resp["recordId"])

    var cand models.Candidate
    require.NoError(t, db.Where("roll_no = ? AND exam_id = ?", "R001", examID).First(&cand).Error)
    assert.Equal(t, "Asha Verma", cand.Name)
}

func TestSyncRecordDuplicateReturns409(t *testing.T) {
    db := testDB(t)
    operator := models.User{UserID: uuid.NewString(), Role: "operator"}
    r := syncRouter(db, operator)
    examID := uuid.NewString()

    body := gin.H{"entityType": "candidate", "rollNo": "R001", "name": "Asha Verma"}
    w, _ := doJSON(t, r, http.MethodPost, "/sync/"+examID+"/record", body)
    require.Equal(t, http.StatusOK, w.Code)

    w, resp := doJSON(t, r, http.MethodPost, "/sync/"+examID+"/record", body)
    assert.Equal(t, http.StatusConflict, w.Code)
    assert.Equal(t, false, resp["success"])
    assert.Equal(t, true, resp["conflict"])
    assert.NotEmpty(t, resp["conflictId"])
    assert.NotNil(t, resp["existingRecord"])
}

func TestSyncRecordNumericRollNo(t *testing.T) {
    db := testDB(t)
    operator := models.User{UserID: uuid.NewString(), Role: "operator"}
    r := syncRouter(db, operator)
    examID := uuid.NewString()

    w, _ := doJSON(t, r, http.MethodPost, "/sync/"+examID+"/record", gin.H{
        "entityType": "candidate",
        "rollNo":     1001,
        "name":       "Numeric Roll",
    })
    require.Equal(t, http.StatusOK, w.Code)

    var cand models.Candidate
    require.NoError(t, db.Where("roll_no = ? AND exam_id = ?", "1001", examID).First(&cand).Error)
}

func TestSyncRecordUnknownCandidate404(t *testing.T) {
    db := testDB(t)
    operator := models.User{UserID: uuid.NewString(), Role: "operator"}
    r := syncRouter(db, operator)
    examID := uuid.NewString()

    w, resp := doJSON(t, r, http.MethodPost, "/sync/"+examID+"/record", gin.H{
        "entityType": "attendance",
        "rollNo":     "R404",
        "present":    true,
    })
    assert.Equal(t, http.StatusNotFound, w.Code)
    assert.Equal(t, sync.CodeNotFound, resp["code"])
}

func TestSyncRecordInvalidEntityType(t *testing.T) {
    db := testDB(t)
    operator := models.User{UserID: uuid.NewString(), Role: "operator"}
    r := syncRouter(db, operator)

    w, resp := doJSON(t, r, http.MethodPost, "/sync/"+uuid.NewString()+"/record", gin.H{
        "entityType": "passport",
        "rollNo":     "R001",
    })
    assert.Equal(t, http.StatusBadRequest, w.Code)
    assert.Equal(t, sync.CodeInvalidEntityType, resp["code"])
}

func TestSyncDeviceBatch(t *testing.T) {
    db := testDB(t)
    operator := models.User{UserID: uuid.NewString(), Role: "operator"}
    r := syncRouter(db, operator)
    examID := uuid.NewString()

    w, resp := doJSON(t, r, http.MethodPost, "/sync/"+examID+"/device", gin.H{
        "candidates": []gin.H{
            {"rollNo": "R001", "name": "Asha Verma"},
            {"rollNo": "R002", "name": "Bilal Khan"},
        },
        "attendance": []gin.H{
            {"rollNo": "R001", "present": true, "status": "completed"},
        },
    })
    require.Equal(t, http.StatusOK, w.Code)
    data := resp["data"].(map[string]interface{})
    assert.EqualValues(t, 3, data["synced"])
    assert.EqualValues(t, 0, data["conflicts"])
    assert.EqualValues(t, 0, data["failed"])
}

func TestSyncStatusEndpoint(t *testing.T) {
    db := testDB(t)
    operator := models.User{UserID: uuid.NewString(), Role: "operator"}
    r := syncRouter(db, operator)
    examID := uuid.NewString()

    _, _ = doJSON(t, r, http.MethodPost, "/sync/"+examID+"/device", gin.H{
        "candidates": []gin.H{{"rollNo": "R001", "name": "Asha Verma"}},
    })

    w, resp := doJSON(t, r, http.MethodGet, "/sync/"+examID+"/status", nil)
    require.Equal(t, http.StatusOK, w.Code)
    data := resp["data"].(map[string]interface{})
    summary := data["summary"].(map[string]interface{})
    // One candidate row plus the device summary row.
    assert.EqualValues(t, 2, summary["total"])
    assert.EqualValues(t, 2, summary["synced"])
}

func TestResolveEndpointDefaultsResolvedBy(t *testing.T) {
    db := testDB(t)
    admin := models.User{UserID: uuid.NewString(), Role: "admin"}
    r := syncRouter(db, admin)
    examID := uuid.NewString()

    body := gin.H{"entityType": "candidate", "rollNo": "R001", "name": "Asha Verma"}
    w, _ := doJSON(t, r, http.MethodPost, "/sync/"+examID+"/record", body)
    require.Equal(t, http.StatusOK, w.Code)
    w, resp := doJSON(t, r, http.MethodPost, "/sync/"+examID+"/record", body)
    require.Equal(t, http.StatusConflict, w.Code)
    conflictID := resp["conflictId"].(string)

    w, resp = doJSON(t, r, http.MethodPost,
        fmt.Sprintf("/admin/sync/conflicts/%s/resolve", conflictID),
        gin.H{"strategy": "keep_existing"})
    require.Equal(t, http.StatusOK, w.Code)
    assert.Equal(t, true, resp["success"])

    var row models.SyncStatus
    require.NoError(t, db.Where("id = ?", conflictID).First(&row).Error)
    assert.True(t, row.Resolved)
    require.NotNil(t, row.ResolvedBy)
    assert.Equal(t, admin.UserID, *row.ResolvedBy)
}

func TestResolveEndpointInvalidStrategy(t *testing.T) {
    db := testDB(t)
    admin := models.User{UserID: uuid.NewString(), Role: "admin"}
    r := syncRouter(db, admin)
    examID := uuid.NewString()

    body := gin.H{"entityType": "candidate", "rollNo": "R001"}
    _, _ = doJSON(t, r, http.MethodPost, "/sync/"+examID+"/record", body)
    w, resp := doJSON(t, r, http.MethodPost, "/sync/"+examID+"/record", body)
    require.Equal(t, http.StatusConflict, w.Code)
    conflictID := resp["conflictId"].(string)

    w, resp = doJSON(t, r, http.MethodPost,
        fmt.Sprintf("/admin/sync/conflicts/%s/resolve", conflictID),
        gin.H{"strategy": "coin_toss"})
    assert.Equal(t, http.StatusBadRequest, w.Code)
    assert.Equal(t, sync.CodeInvalidStrategy, resp["code"])
}

func TestConflictsEndpoint(t *testing.T) {
    db := testDB(t)
    admin := models.User{UserID: uuid.NewString(), Role: "admin"}
    r := syncRouter(db, admin)
    examID := uuid.NewString()

    body := gin.H{"entityType": "candidate", "rollNo": "R001"}
    _, _ = doJSON(t, r, http.MethodPost, "/sync/"+examID+"/record", body)
    _, _ = doJSON(t, r, http.MethodPost, "/sync/"+examID+"/record", body)

    w, resp := doJSON(t, r, http.MethodGet, "/admin/exams/"+examID+"/conflicts", nil)
    require.Equal(t, http.StatusOK, w.Code)
    assert.EqualValues(t, 1, resp["count"])
}
