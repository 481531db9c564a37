package handler

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"acadrive/internal/database"
	"acadrive/internal/model"
	"acadrive/internal/query"
	"acadrive/internal/service"
)

// resourceView is the JSON shape of a resource, with the derived badge.
type resourceView struct {
	model.Resource
	Recommended bool `json:"recommended"`
}

func viewOf(r model.Resource) resourceView {
	return resourceView{Resource: r, Recommended: r.Recommended()}
}

type listResponse struct {
	Data  []resourceView `json:"data"`
	Total int            `json:"total"`
}

type voteRequest struct {
	Direction string `json:"direction"`
}

type voteResponse struct {
	Applied  bool         `json:"applied"`
	Resource resourceView `json:"resource"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.CatalogService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/resources", ListResources(svc))
	app.Post("/resources", UploadResource(svc))
	app.Get("/resources/:id", GetResource(svc))
	app.Get("/resources/:id/download", DownloadResource(svc))
	app.Delete("/resources/:id", DeleteResource(svc))
	app.Post("/resources/:id/vote", VoteResource(svc))
}

// HealthCheck checks DB connectivity only.
//
// @Summary  Readiness check
// @Tags     health
// @Produce  json
// @Success  200 {object} map[string]string
// @Failure  503 {object} errorPayload
// @Router   /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := database.Ping(c.UserContext(), db, 2*time.Second); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness probe.
//
// @Summary  Liveness check
// @Tags     health
// @Success  200
// @Router   /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListResources returns the ranked catalog filtered by the query string.
//
// @Summary  Browse resources
// @Tags     resources
// @Produce  json
// @Param    q            query  string false "Search text (subject name, code or file name)"
// @Param    type         query  string false "Resource type or All"
// @Param    semester     query  int    false "Semester 1-8"
// @Param    mine         query  bool   false "Only resources uploaded by X-Client-ID"
// @Param    X-Client-ID  header string false "Client identity"
// @Success  200 {object} listResponse
// @Failure  400 {object} errorPayload
// @Router   /resources [get]
func ListResources(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := query.Filters{
			SearchText:   c.Query("q"),
			ResourceType: c.Query("type"),
		}
		if s := strings.TrimSpace(c.Query("semester")); s != "" {
			sem, err := strconv.Atoi(s)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "semester must be a number")
			}
			f.Semester = sem
		}
		if m := c.Query("mine"); m != "" {
			mine, err := strconv.ParseBool(m)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "mine must be true or false")
			}
			f.OwnerOnly = mine
		}

		res, err := svc.Browse(c.UserContext(), f)
		if err != nil {
			return writeServiceError(c, err)
		}
		out := listResponse{Data: make([]resourceView, 0, len(res.Items)), Total: res.Total}
		for _, r := range res.Items {
			out.Data = append(out.Data, viewOf(r))
		}
		return c.JSON(out)
	}
}

// UploadResource accepts a multipart upload.
//
// @Summary  Upload a resource
// @Tags     resources
// @Accept   multipart/form-data
// @Produce  json
// @Param    file          formData file   true  "PDF document"
// @Param    subject_name  formData string true  "Subject name"
// @Param    subject_code  formData string false "Subject code"
// @Param    semester      formData int    true  "Semester 1-8"
// @Param    resource_type formData string true  "Notes, Module, Question Paper or Question Set"
// @Param    X-Client-ID   header   string true  "Client identity"
// @Success  201 {object} resourceView
// @Failure  400 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Failure  502 {object} errorPayload
// @Router   /resources [post]
func UploadResource(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		semester, err := strconv.Atoi(strings.TrimSpace(c.FormValue("semester")))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "semester must be a number")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := svc.Upload(c.UserContext(), service.UploadInput{
			SubjectName:  c.FormValue("subject_name"),
			SubjectCode:  c.FormValue("subject_code"),
			Semester:     semester,
			ResourceType: c.FormValue("resource_type"),
			FileName:     fh.Filename,
			Content:      f,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(viewOf(*res))
	}
}

// GetResource returns one resource.
//
// @Summary  Get a resource
// @Tags     resources
// @Produce  json
// @Param    id path string true "Resource ID (UUID)"
// @Success  200 {object} resourceView
// @Failure  404 {object} errorPayload
// @Router   /resources/{id} [get]
func GetResource(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		res, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(viewOf(*res))
	}
}

// DownloadResource redirects to a short-lived link to the stored file.
//
// @Summary  Download a resource
// @Tags     resources
// @Param    id path string true "Resource ID (UUID)"
// @Success  302
// @Failure  404 {object} errorPayload
// @Failure  502 {object} errorPayload
// @Router   /resources/{id}/download [get]
func DownloadResource(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		link, err := svc.DownloadURL(c.UserContext(), id, service.DefaultLinkExpiry)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Redirect(link, fiber.StatusFound)
	}
}

// DeleteResource removes a resource owned by the caller.
//
// @Summary  Delete a resource
// @Tags     resources
// @Param    id          path   string true "Resource ID (UUID)"
// @Param    X-Client-ID header string true "Client identity"
// @Success  204
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /resources/{id} [delete]
func DeleteResource(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// VoteResource records one vote by the caller.
//
// @Summary  Vote on a resource
// @Tags     resources
// @Accept   json
// @Produce  json
// @Param    id          path   string      true "Resource ID (UUID)"
// @Param    X-Client-ID header string      true "Client identity"
// @Param    body        body   voteRequest true "up or down"
// @Success  200 {object} voteResponse
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /resources/{id}/vote [post]
func VoteResource(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req voteRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "body must be {\"direction\": \"up\"|\"down\"}")
		}

		out, err := svc.Vote(c.UserContext(), id, model.VoteDirection(strings.ToLower(strings.TrimSpace(req.Direction))), nil)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(voteResponse{Applied: out.Applied, Resource: viewOf(out.Resource)})
	}
}
