package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"acadrive/internal/dedup"
	"acadrive/internal/identity"
	"acadrive/internal/model"
	"acadrive/internal/query"
	"acadrive/internal/service"
	serviceMocks "acadrive/internal/service/mocks"
	"acadrive/internal/vote"
)

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListResources(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Get("/resources", ListResources(mockSvc))

	t.Run("success", func(t *testing.T) {
		expected := &service.BrowseResult{
			Items: []model.Resource{{ID: uuid.New().String(), SubjectName: "DBMS", Upvotes: 6, Score: 5}},
			Total: 1,
		}
		filters := query.Filters{SearchText: "dbms", ResourceType: "Notes", Semester: 3, OwnerOnly: true}
		mockSvc.On("Browse", mock.Anything, filters).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/resources?q=dbms&type=Notes&semester=3&mine=true", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result listResponse
		json.NewDecoder(resp.Body).Decode(&result)
		require.Len(t, result.Data, 1)
		assert.Equal(t, 1, result.Total)
		assert.Equal(t, "DBMS", result.Data[0].SubjectName)
		assert.True(t, result.Data[0].Recommended)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty catalog is an empty array", func(t *testing.T) {
		mockSvc.On("Browse", mock.Anything, query.Filters{}).Return(&service.BrowseResult{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/resources", nil))

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.JSONEq(t, `{"data":[],"total":0}`, buf.String())
	})

	t.Run("invalid semester", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resources?semester=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	})

	t.Run("mine without identity", func(t *testing.T) {
		mockSvc.On("Browse", mock.Anything, query.Filters{OwnerOnly: true}).Return(nil, identity.ErrMissing).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/resources?mine=1", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "IDENTITY_REQUIRED", body.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Browse", mock.Anything, query.Filters{}).Return(nil, errors.New("service error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/resources", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func multipartUpload(t *testing.T, fields map[string]string, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		part.Write(content)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadResource(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Post("/resources", UploadResource(mockSvc))

	fields := map[string]string{
		"subject_name":  "Compilers",
		"subject_code":  "CS401",
		"semester":      "5",
		"resource_type": "Question Paper",
	}
	matchInput := mock.MatchedBy(func(in service.UploadInput) bool {
		return in.SubjectName == "Compilers" && in.SubjectCode == "CS401" && in.Semester == 5 &&
			in.ResourceType == "Question Paper" && in.FileName == "paper.pdf" && in.Content != nil
	})

	t.Run("success", func(t *testing.T) {
		body, ct := multipartUpload(t, fields, "paper.pdf", []byte("%PDF-1.4"))
		expected := &model.Resource{ID: uuid.New().String(), SubjectName: "Compilers"}
		mockSvc.On("Upload", mock.Anything, matchInput).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/resources", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result resourceView
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expected.ID, result.ID)
		assert.False(t, result.Recommended)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/resources", nil)
		// Missing content-type and body
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
	})

	t.Run("non numeric semester", func(t *testing.T) {
		bad := map[string]string{"subject_name": "X", "semester": "fifth", "resource_type": "Notes"}
		body, ct := multipartUpload(t, bad, "paper.pdf", []byte("%PDF-1.4"))

		req := httptest.NewRequest(http.MethodPost, "/resources", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	errCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &service.ValidationError{Field: "file", Message: "content type text/plain is not allowed"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"duplicate", &dedup.ConflictError{ResourceID: "r-1", SubjectName: "Compilers"}, http.StatusConflict, "DUPLICATE_CONFLICT"},
		{"storage", errors.Join(service.ErrStorage, errors.New("bucket offline")), http.StatusBadGateway, "STORAGE_FAILURE"},
		{"partial", &service.PartialWriteError{Op: "upload", Key: "1-paper.pdf", Err: errors.New("x")}, http.StatusInternalServerError, "PARTIAL_WRITE"},
		{"identity", identity.ErrMissing, http.StatusBadRequest, "IDENTITY_REQUIRED"},
		{"unknown", errors.New("upload failed"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range errCases {
		t.Run("error "+tc.name, func(t *testing.T) {
			body, ct := multipartUpload(t, fields, "paper.pdf", []byte("%PDF-1.4"))
			mockSvc.On("Upload", mock.Anything, matchInput).Return(nil, tc.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/resources", body)
			req.Header.Set("Content-Type", ct)
			resp, _ := app.Test(req)

			assert.Equal(t, tc.status, resp.StatusCode)
			var res errorPayload
			json.NewDecoder(resp.Body).Decode(&res)
			assert.Equal(t, tc.code, res.Error.Code)
			assert.NotContains(t, res.Error.Message, "bucket offline")
		})
	}

	t.Run("duplicate message names the existing entry", func(t *testing.T) {
		body, ct := multipartUpload(t, fields, "paper.pdf", []byte("%PDF-1.4"))
		mockSvc.On("Upload", mock.Anything, matchInput).Return(nil, &dedup.ConflictError{SubjectName: "Compilers"}).Once()

		req := httptest.NewRequest(http.MethodPost, "/resources", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Contains(t, res.Error.Message, `"Compilers"`)
	})
}

func TestGetResource(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Get("/resources/:id", GetResource(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		expected := &model.Resource{ID: id, FileName: "test.pdf"}
		mockSvc.On("Get", mock.Anything, id).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/resources/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result resourceView
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/resources/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resources/invalid-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})
}

func TestDownloadResource(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Get("/resources/:id/download", DownloadResource(mockSvc))

	t.Run("redirects to signed link", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("DownloadURL", mock.Anything, id, service.DefaultLinkExpiry).
			Return("http://blob/acadrive-files/1-a.pdf?X-Amz-Signature=abc", nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/resources/"+id+"/download", nil))

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "http://blob/acadrive-files/1-a.pdf?X-Amz-Signature=abc", resp.Header.Get("Location"))
		mockSvc.AssertExpectations(t)
	})

	t.Run("storage failure", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("DownloadURL", mock.Anything, id, service.DefaultLinkExpiry).
			Return("", errors.Join(service.ErrStorage, errors.New("no credentials"))).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/resources/"+id+"/download", nil))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/resources/nope/download", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		mockSvc.AssertNotCalled(t, "DownloadURL", mock.Anything, "nope", mock.Anything)
	})
}

func TestDeleteResource(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Delete("/resources/:id", DeleteResource(mockSvc))

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusNoContent},
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"not owner", service.ErrForbidden, http.StatusForbidden},
		{"anonymous", identity.ErrMissing, http.StatusBadRequest},
		{"orphaned blob", &service.PartialWriteError{Op: "delete", Key: "k", Err: errors.New("x")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := uuid.New().String()
			mockSvc.On("Delete", mock.Anything, id).Return(tc.err).Once()

			req := httptest.NewRequest(http.MethodDelete, "/resources/"+id, nil)
			resp, _ := app.Test(req)

			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
	mockSvc.AssertExpectations(t)
}

func TestVoteResource(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Post("/resources/:id/vote", VoteResource(mockSvc))

	post := func(id, body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/resources/"+id+"/vote", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("applied", func(t *testing.T) {
		id := uuid.New().String()
		out := vote.Outcome{Applied: true, Resource: model.Resource{ID: id, Upvotes: 1, Score: 1}}
		mockSvc.On("Vote", mock.Anything, id, model.VoteUp, mock.Anything).Return(out, nil).Once()

		resp := post(id, `{"direction":"UP"}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var res voteResponse
		json.NewDecoder(resp.Body).Decode(&res)
		assert.True(t, res.Applied)
		assert.Equal(t, 1, res.Resource.Score)
	})

	t.Run("repeat vote is ignored", func(t *testing.T) {
		id := uuid.New().String()
		out := vote.Outcome{Applied: false, Resource: model.Resource{ID: id, Upvotes: 1, Score: 1}, Previous: model.VoteUp}
		mockSvc.On("Vote", mock.Anything, id, model.VoteDown, mock.Anything).Return(out, nil).Once()

		resp := post(id, `{"direction":"down"}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var res voteResponse
		json.NewDecoder(resp.Body).Decode(&res)
		assert.False(t, res.Applied)
	})

	t.Run("bad direction", func(t *testing.T) {
		id := uuid.New().String()
		verr := &service.ValidationError{Field: "direction", Message: `must be "up" or "down"`}
		mockSvc.On("Vote", mock.Anything, id, model.VoteDirection("sideways"), mock.Anything).Return(vote.Outcome{}, verr).Once()

		resp := post(id, `{"direction":"sideways"}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := post(uuid.New().String(), `{`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("storage failure", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Vote", mock.Anything, id, model.VoteUp, mock.Anything).
			Return(vote.Outcome{}, errors.Join(service.ErrStorage, errors.New("timeout"))).Once()

		resp := post(id, `{"direction":"up"}`)

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})

	mockSvc.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockCatalogService)
	// Register all routes
	RegisterRoutes(app, nil, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})
}
