package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/metrics"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/clinic-portal/portal-service/internal/validator"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// answerFieldPrefix prefixes every question field of the test form.
const answerFieldPrefix = "question_"

const (
	resultsSheet = "Resultados"
	answersSheet = "Respuestas"
)

type testService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewTestService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) TestService {
	return &testService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// EnsureQuestions seeds the questionnaire once.
func (s *testService) EnsureQuestions(ctx context.Context) error {
	count, err := s.repo.Test().CountQuestions(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	if count > 0 {
		return nil
	}

	questions := models.DefaultTestQuestions()
	if err := s.repo.Test().SeedQuestions(ctx, nil, questions); err != nil {
		return fmt.Errorf("failed to seed questions: %w", err)
	}

	s.logger.Info("Seeded test questionnaire", "questions", len(questions))
	return nil
}

func (s *testService) Questions(ctx context.Context) ([]*models.TestQuestion, error) {
	questions, err := s.repo.Test().ListQuestions(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// ===== SUBMISSION =====

// scoredSubmission is the outcome of resolving a raw answer map.
type scoredSubmission struct {
	answers  []models.TestAnswer
	total    int
	sections SectionScores
}

// score resolves "question_<id>" -> "<option id>" pairs against the questionnaire.
// Malformed or non-canonical keys, unknown questions and options from another
// question are skipped.
func score(questions []*models.TestQuestion, raw map[string]string) *scoredSubmission {
	byID := make(map[uint]*models.TestQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	result := &scoredSubmission{sections: make(SectionScores)}
	for _, section := range models.TestSections {
		result.sections[section] = 0
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !strings.HasPrefix(key, answerFieldPrefix) {
			continue
		}
		suffix := strings.TrimPrefix(key, answerFieldPrefix)
		questionID, err := strconv.ParseUint(suffix, 10, 64)
		// Only the canonical spelling counts so each question is scored once.
		if err != nil || strconv.FormatUint(questionID, 10) != suffix {
			continue
		}
		optionID, err := strconv.ParseUint(strings.TrimSpace(raw[key]), 10, 64)
		if err != nil {
			continue
		}

		question, ok := byID[uint(questionID)]
		if !ok {
			continue
		}
		option := findOption(question, uint(optionID))
		if option == nil {
			continue
		}

		result.total += option.Points
		result.sections[question.Section] += option.Points
		result.answers = append(result.answers, models.TestAnswer{
			QuestionID: question.ID,
			OptionID:   option.ID,
		})
	}

	return result
}

func findOption(q *models.TestQuestion, id uint) *models.TestOption {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}

func (s *testService) Submit(ctx context.Context, actor *models.User, answers map[string]string) (*models.TestResult, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	questions, err := s.Questions(ctx)
	if err != nil {
		return nil, err
	}

	scored := score(questions, answers)
	band, diagnosis := models.Diagnose(scored.total)

	sections, err := json.Marshal(scored.sections)
	if err != nil {
		return nil, fmt.Errorf("failed to encode section scores: %w", err)
	}

	result := &models.TestResult{
		PatientID:     actor.ID,
		TotalScore:    scored.total,
		Band:          band,
		Diagnosis:     diagnosis,
		SectionScores: datatypes.JSON(sections),
	}
	if err := s.repo.Test().CreateResult(ctx, nil, result, scored.answers); err != nil {
		return nil, fmt.Errorf("failed to store test result: %w", err)
	}

	metrics.RecordTestSubmission(string(band))
	s.logger.Info("Test scored",
		"result_id", result.ID,
		"patient_id", actor.ID,
		"score", result.TotalScore,
		"band", band,
		"answers", len(scored.answers),
		"skipped", len(answers)-len(scored.answers))
	events.PublishSafe(ctx, s.publisher, s.logger, events.TestScored, events.TestScoredEvent{
		ResultID:  result.ID,
		PatientID: actor.ID,
		Score:     result.TotalScore,
		Band:      string(band),
	})

	return result, nil
}

// ===== RESULTS =====

// GetResult is limited to the patient who took the test.
func (s *testService) GetResult(ctx context.Context, actor *models.User, id uint) (*models.TestResult, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	result, err := s.repo.Test().GetResultByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get test result: %w", err)
	}
	if result.PatientID != actor.ID {
		return nil, NewPermissionError(actor.ID, id, "test_result", "read", "not the patient")
	}

	return result, nil
}

// ListResults shows staff every result with answers joined; anyone else gets only their own.
func (s *testService) ListResults(ctx context.Context, actor *models.User, req *ResultListRequest) (*ResultListResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	filters, page, err := s.buildFilters(req)
	if err != nil {
		return nil, err
	}

	if !actor.Role().IsStaff() {
		filters.PatientID = &actor.ID
		results, total, err := s.repo.Test().ListResults(ctx, nil, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list test results: %w", err)
		}
		return &ResultListResponse{Results: results, Total: total, Page: page, Size: filters.Limit}, nil
	}

	counted := filters
	counted.Limit, counted.Offset = 1, 0
	_, total, err := s.repo.Test().ListResults(ctx, nil, counted)
	if err != nil {
		return nil, fmt.Errorf("failed to count test results: %w", err)
	}

	results, err := s.repo.Test().ListResultsWithAnswers(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list test results: %w", err)
	}

	return &ResultListResponse{Results: results, Total: total, Page: page, Size: filters.Limit}, nil
}

// ExportResults renders every matching result into an XLSX workbook with one
// summary sheet and one sheet of individual answers.
func (s *testService) ExportResults(ctx context.Context, actor *models.User, req *ResultListRequest) ([]byte, error) {
	if err := requireStaff(actor, "test_result", "export"); err != nil {
		return nil, err
	}

	filters, _, err := s.buildFilters(req)
	if err != nil {
		return nil, err
	}
	filters.Limit, filters.Offset = 0, 0

	results, err := s.repo.Test().ListResultsWithAnswers(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list test results: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to prepare workbook: %w", err)
	}
	if _, err := f.NewSheet(answersSheet); err != nil {
		return nil, fmt.Errorf("failed to prepare workbook: %w", err)
	}

	summary := [][]interface{}{{"ID", "Paciente", "Usuario", "Fecha", "Puntaje", "Banda", "Diagnóstico", "Sección A", "Sección B", "Sección C"}}
	detail := [][]interface{}{{"Resultado", "Paciente", "Pregunta", "Sección", "Texto", "Respuesta", "Puntos"}}

	for _, r := range results {
		var sections SectionScores
		if len(r.SectionScores) > 0 {
			if err := json.Unmarshal(r.SectionScores, &sections); err != nil {
				s.logger.Warn("Unreadable section scores", "result_id", r.ID, "error", err)
			}
		}

		summary = append(summary, []interface{}{
			r.ID,
			r.Patient.FullName(),
			r.Patient.Username,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.TotalScore,
			string(r.Band),
			r.Diagnosis,
			sections[models.SectionA],
			sections[models.SectionB],
			sections[models.SectionC],
		})

		for _, a := range r.Answers {
			detail = append(detail, []interface{}{
				r.ID,
				r.Patient.FullName(),
				a.Question.Number,
				string(a.Question.Section),
				a.Question.Text,
				a.Option.Text,
				a.Option.Points,
			})
		}
	}

	if err := writeRows(f, resultsSheet, summary); err != nil {
		return nil, err
	}
	if err := writeRows(f, answersSheet, detail); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Test results exported", "results", len(results), "exported_by", actor.ID)
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+1, err)
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func (s *testService) buildFilters(req *ResultListRequest) (repositories.ResultFilters, int, error) {
	if req == nil {
		req = &ResultListRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return repositories.ResultFilters{}, 0, err
	}

	limit, offset, page := paginate(req.Page)
	filters := repositories.ResultFilters{
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
		Limit:    limit,
		Offset:   offset,
	}
	if req.PatientID != 0 {
		filters.PatientID = &req.PatientID
	}
	return filters, page, nil
}
