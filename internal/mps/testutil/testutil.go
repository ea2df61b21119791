package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-mps/internal/middleware"
	"github.com/bitfantasy/nimo-mps/internal/mps/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "nimo-mps-jwt-secret-key-2026"

// TestEnv 接口测试环境：测试库 + 已挂路由的引擎
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// SetupTestDB 创建内存sqlite测试库并迁移MPS表，测试结束自动关闭
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:mps_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := entity.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

// TestLogger 测试用空logger
func TestLogger() *zap.Logger {
	return zap.NewNop()
}

// SetupRouter 创建gin测试路由
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup 创建带JWT认证的测试路由组
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken 生成测试JWT
func GenerateTestToken(userID, name, email string, roles, permissions []string) string {
	if roles == nil {
		roles = []string{}
	}
	if permissions == nil {
		permissions = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"email": email,
		"roles": roles,
		"perms": permissions,
		"iss":   "nimo-mps",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken 默认管理员测试token
func DefaultTestToken() string {
	return GenerateTestToken(
		"test-user-001",
		"Test Admin",
		"admin@test.com",
		[]string{"mps_admin"},
		[]string{"*"},
	)
}

// DoRequest 对测试路由发起HTTP请求
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse 解析JSON响应
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedProduct 创建测试产品
func SeedProduct(t *testing.T, db *gorm.DB, code, name string, standardCost float64) *entity.Product {
	t.Helper()
	product := &entity.Product{
		ID:           uuid.New().String(),
		Code:         code,
		Name:         name,
		Unit:         "pcs",
		StandardCost: standardCost,
		Status:       entity.ProductStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return product
}

// BOMItemSpec BOM行项定义（物料与单位用量）
type BOMItemSpec struct {
	MaterialID string
	QtyPerUnit float64
}

// RoutingSpec 工艺路线工序定义
type RoutingSpec struct {
	Name            string
	WorkCenterID    string
	DurationMinutes float64
}

// SeedBOM 创建已发布BOM（含行项与工艺路线）
func SeedBOM(t *testing.T, db *gorm.DB, productID string, items []BOMItemSpec, routing []RoutingSpec) *entity.BOMHeader {
	t.Helper()
	bom := &entity.BOMHeader{
		ID:        uuid.New().String(),
		Code:      fmt.Sprintf("BOM-%d", time.Now().UnixNano()%100000),
		ProductID: productID,
		Version:   "v1.0",
		Status:    entity.BOMStatusReleased,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	for i, item := range items {
		bom.Items = append(bom.Items, entity.BOMItem{
			ID:          uuid.New().String(),
			BOMHeaderID: bom.ID,
			Sequence:    (i + 1) * 10,
			MaterialID:  item.MaterialID,
			QtyPerUnit:  item.QtyPerUnit,
			Unit:        "pcs",
		})
	}
	for i, op := range routing {
		bom.Routing = append(bom.Routing, entity.RoutingOperation{
			ID:              uuid.New().String(),
			BOMHeaderID:     bom.ID,
			Sequence:        (i + 1) * 10,
			Name:            op.Name,
			WorkCenterID:    op.WorkCenterID,
			DurationMinutes: op.DurationMinutes,
		})
	}
	if err := db.Create(bom).Error; err != nil {
		t.Fatalf("Failed to seed BOM: %v", err)
	}
	return bom
}

// SeedStock 创建库存快照
func SeedStock(t *testing.T, db *gorm.DB, materialID string, onHand, outgoing float64) *entity.Stock {
	t.Helper()
	stock := &entity.Stock{
		ID:          uuid.New().String(),
		MaterialID:  materialID,
		OnHandQty:   onHand,
		OutgoingQty: outgoing,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := db.Create(stock).Error; err != nil {
		t.Fatalf("Failed to seed stock: %v", err)
	}
	return stock
}

// SeedProject 创建测试项目
func SeedProject(t *testing.T, db *gorm.DB, name string) *entity.Project {
	t.Helper()
	project := &entity.Project{
		ID:        uuid.New().String(),
		Code:      fmt.Sprintf("PRJ-%d", time.Now().UnixNano()%100000),
		Name:      name,
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 3, 0),
		Status:    entity.ProjectStatusDraft,
		CreatedBy: "test-user-001",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("Failed to seed project: %v", err)
	}
	return project
}
