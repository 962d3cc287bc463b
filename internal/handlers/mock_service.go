package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/willbeeching/boilerjuice/internal/models"
	"github.com/willbeeching/boilerjuice/internal/service"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockTank struct {
	ingestResp  models.DerivedMetrics
	ingestErr   error
	resetErr    error
	setErr      error
	refreshResp models.DerivedMetrics
	refreshErr  error

	resetCalls   int
	setCalls     int
	refreshCalls int
	lastLitres   float64
	lastRate     *float64
}

func (m *mockTank) Ingest(ctx context.Context, r models.Reading, now time.Time) (models.DerivedMetrics, error) {
	return m.ingestResp, m.ingestErr
}
func (m *mockTank) Reset(ctx context.Context, now time.Time) error {
	m.resetCalls++
	return m.resetErr
}
func (m *mockTank) SetConsumption(ctx context.Context, litres float64, dailyRate *float64, now time.Time) error {
	m.setCalls++
	m.lastLitres = litres
	m.lastRate = dailyRate
	return m.setErr
}
func (m *mockTank) Refresh(ctx context.Context, now time.Time) (models.DerivedMetrics, error) {
	m.refreshCalls++
	return m.refreshResp, m.refreshErr
}

type mockMonitoring struct {
	state   models.TankState
	metrics models.DerivedMetrics
	err     error
}

func (m *mockMonitoring) State(ctx context.Context) (models.TankState, error) {
	return m.state, m.err
}
func (m *mockMonitoring) Metrics(ctx context.Context, now time.Time) (models.DerivedMetrics, error) {
	return m.metrics, m.err
}

type mockEventLog struct {
	resp     []models.TankEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.TankEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
