package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupPlanRouter(svc PlanService) *gin.Engine {
	h := NewPlanHandler(svc, "XOF")
	r := gin.New()
	plans := r.Group("/billing/plans")
	plans.POST("", h.Create)
	plans.GET("", h.List)
	plans.GET("/code/:code", h.GetByCode)
	plans.GET("/:id", h.GetByID)
	plans.PUT("/:id", h.Update)
	plans.POST("/:id/activate", h.Activate)
	plans.POST("/:id/deactivate", h.Deactivate)
	return r
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func serve(r *gin.Engine, method, target string, body *bytes.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func samplePlanDTO() *billing.PlanDTO {
	return &billing.PlanDTO{
		ID:                  uuid.New(),
		Code:                "PRO",
		Name:                "Pro",
		IncludedUsers:       5,
		PriceMonthly:        decimal.NewFromInt(25000),
		PriceYearly:         decimal.NewFromInt(250000),
		ExtraUserMonthlyFee: decimal.NewFromInt(3000),
		Currency:            "XOF",
		IsActive:            true,
	}
}

func TestPlanHandler_Create(t *testing.T) {
	t.Run("creates with default currency", func(t *testing.T) {
		svc := new(mockPlanService)
		plan := samplePlanDTO()
		svc.On("Create", mock.Anything, mock.MatchedBy(func(in billing.PlanInput) bool {
			return in.Code == "PRO" && in.Currency == "XOF" &&
				in.PriceMonthly.Equal(decimal.NewFromInt(25000)) &&
				in.ExtraUserMonthlyFee.Equal(decimal.NewFromInt(3000))
		})).Return(plan, nil)

		w := serve(setupPlanRouter(svc), http.MethodPost, "/billing/plans", jsonBody(t, map[string]any{
			"code":                   "PRO",
			"name":                   "Pro",
			"included_users":         5,
			"price_monthly":          25000,
			"price_yearly":           "250000",
			"extra_user_monthly_fee": 3000,
		}))

		assert.Equal(t, http.StatusCreated, w.Code)
		var got billing.PlanDTO
		decodeData(t, w, &got)
		assert.Equal(t, plan.ID, got.ID)
		svc.AssertExpectations(t)
	})

	t.Run("rejects missing name", func(t *testing.T) {
		svc := new(mockPlanService)

		w := serve(setupPlanRouter(svc), http.MethodPost, "/billing/plans", jsonBody(t, map[string]any{
			"code": "PRO",
		}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		svc := new(mockPlanService)
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, shared.ErrAlreadyExists)

		w := serve(setupPlanRouter(svc), http.MethodPost, "/billing/plans", jsonBody(t, map[string]any{
			"code": "PRO", "name": "Pro", "currency": "EUR",
		}))

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestPlanHandler_GetByID(t *testing.T) {
	svc := new(mockPlanService)
	plan := samplePlanDTO()
	svc.On("GetByID", mock.Anything, plan.ID).Return(plan, nil)
	missing := uuid.New()
	svc.On("GetByID", mock.Anything, missing).Return(nil, shared.ErrNotFound)
	r := setupPlanRouter(svc)

	w := serve(r, http.MethodGet, "/billing/plans/"+plan.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/billing/plans/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodGet, "/billing/plans/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanHandler_GetByCode(t *testing.T) {
	svc := new(mockPlanService)
	plan := samplePlanDTO()
	svc.On("GetByCode", mock.Anything, "PRO").Return(plan, nil)

	w := serve(setupPlanRouter(svc), http.MethodGet, "/billing/plans/code/PRO", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestPlanHandler_List(t *testing.T) {
	svc := new(mockPlanService)
	page := shared.NewPaginated([]billing.PlanDTO{*samplePlanDTO()}, 11, 2, 5)
	svc.On("List", mock.Anything, billing.ListFilter{
		Page: 2, PageSize: 5, Keyword: "pro", Status: "active",
	}).Return(&page, nil)

	w := serve(setupPlanRouter(svc), http.MethodGet, "/billing/plans?page=2&page_size=5&keyword=pro&status=active", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(11), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	svc.AssertExpectations(t)
}

func TestPlanHandler_Update(t *testing.T) {
	svc := new(mockPlanService)
	plan := samplePlanDTO()
	svc.On("Update", mock.Anything, plan.ID, mock.MatchedBy(func(in billing.PlanInput) bool {
		return in.Name == "Pro Plus" && in.Code == "" && in.IncludedUsers == 10
	})).Return(plan, nil)

	w := serve(setupPlanRouter(svc), http.MethodPut, "/billing/plans/"+plan.ID.String(), jsonBody(t, map[string]any{
		"name": "Pro Plus", "included_users": 10, "modules": []string{"crm", "sales"},
	}))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestPlanHandler_ActivateDeactivate(t *testing.T) {
	svc := new(mockPlanService)
	plan := samplePlanDTO()
	svc.On("Activate", mock.Anything, plan.ID).
		Return(nil, shared.NewDomainError("ALREADY_ACTIVE", "Plan is already active"))
	svc.On("Deactivate", mock.Anything, plan.ID).Return(plan, nil)
	r := setupPlanRouter(svc)

	w := serve(r, http.MethodPost, "/billing/plans/"+plan.ID.String()+"/activate", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, decodeResponse(t, w).Error.Code)

	w = serve(r, http.MethodPost, "/billing/plans/"+plan.ID.String()+"/deactivate", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
