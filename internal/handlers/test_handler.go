package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/services"
	"github.com/clinic-portal/portal-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TestHandler struct {
	BaseHandler
	testService services.TestService
	userService services.UserService
}

func NewTestHandler(testService services.TestService, userService services.UserService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
		userService: userService,
	}
}

func (h *TestHandler) TestForm(c *gin.Context) {
	questions, err := h.testService.Questions(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err, "/")
		return
	}

	bySection := make(map[models.TestSection][]*models.TestQuestion, len(models.TestSections))
	for _, q := range questions {
		bySection[q.Section] = append(bySection[q.Section], q)
	}

	h.render(c, http.StatusOK, "test_form.html", gin.H{
		"Title":     "Test personalizado",
		"Sections":  models.TestSections,
		"Questions": bySection,
	})
}

// SubmitTest hands the raw form to the scorer. Unrecognised fields are ignored there.
func (h *TestHandler) SubmitTest(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		redirectWithFlash(c, "/test", flashError, "Formulario inválido.")
		return
	}

	answers := make(map[string]string, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			answers[key] = values[0]
		}
	}

	result, err := h.testService.Submit(c.Request.Context(), currentUser(c), answers)
	if err != nil {
		h.handleServiceError(c, err, "/test")
		return
	}

	h.LogRequest(c, "Test submitted", "result_id", result.ID, "band", result.Band)
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/test/results/%d", result.ID))
}

func (h *TestHandler) GetResult(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Resultado no encontrado.")
		return
	}

	result, err := h.testService.GetResult(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.handleServiceError(c, err, "/test/results")
		return
	}

	h.render(c, http.StatusOK, "test_result.html", gin.H{
		"Title":    "Resultado del test",
		"Result":   result,
		"Sections": models.TestSections,
		"Scores":   h.sectionScores(c, result),
	})
}

// ListResults shows a patient their own history and staff every result with answers.
func (h *TestHandler) ListResults(c *gin.Context) {
	var req services.ResultListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		redirectWithFlash(c, "/test/results", flashError, "Filtro inválido.")
		return
	}

	ctx := c.Request.Context()
	user := currentUser(c)

	list, err := h.testService.ListResults(ctx, user, &req)
	if err != nil {
		h.handleServiceError(c, err, "/")
		return
	}

	data := gin.H{
		"Title":  "Resultados del test",
		"List":   list,
		"Filter": req,
	}
	if user.Role().IsStaff() {
		patients, err := h.userService.ListPatients(ctx, user)
		if err != nil {
			h.handleServiceError(c, err, homeFor(user))
			return
		}
		data["Patients"] = patients
	}
	h.render(c, http.StatusOK, "test_results.html", data)
}

func (h *TestHandler) ExportResults(c *gin.Context) {
	var req services.ResultListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		redirectWithFlash(c, "/test/results", flashError, "Filtro inválido.")
		return
	}

	data, err := h.testService.ExportResults(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.handleServiceError(c, err, "/test/results")
		return
	}

	filename := fmt.Sprintf("resultados_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// sectionScores decodes the per-section summary; an unreadable one renders empty.
func (h *TestHandler) sectionScores(c *gin.Context, result *models.TestResult) services.SectionScores {
	scores := services.SectionScores{}
	if len(result.SectionScores) > 0 {
		if err := json.Unmarshal(result.SectionScores, &scores); err != nil {
			utils.GetLogger(c, h.logger).Warn("Unreadable section scores", "result_id", result.ID, "error", err)
			return services.SectionScores{}
		}
	}
	return scores
}
