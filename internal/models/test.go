package models

import (
	"time"

	"gorm.io/datatypes"
)

type TestSection string

const (
	SectionA TestSection = "A"
	SectionB TestSection = "B"
	SectionC TestSection = "C"
)

var TestSections = []TestSection{SectionA, SectionB, SectionC}

type TestQuestion struct {
	ID      uint        `json:"id" gorm:"primaryKey"`
	Number  int         `json:"number" gorm:"not null;uniqueIndex"`
	Section TestSection `json:"section" gorm:"size:1;not null"`
	Text    string      `json:"text" gorm:"type:text;not null"`

	Options []TestOption `json:"options" gorm:"foreignKey:QuestionID"`
}

func (TestQuestion) TableName() string {
	return "test_questions"
}

type TestOption struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Value      string `json:"value" gorm:"size:50;not null"`
	Text       string `json:"text" gorm:"size:200;not null"`
	Points     int    `json:"points" gorm:"not null"`
}

func (TestOption) TableName() string {
	return "test_options"
}

// TestAnswer is one persisted choice from a submission. Never updated.
type TestAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	ResultID   uint `json:"result_id" gorm:"not null;index"`
	PatientID  uint `json:"patient_id" gorm:"not null;index"`
	QuestionID uint `json:"question_id" gorm:"not null;index"`
	OptionID   uint `json:"option_id" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`

	Question TestQuestion `json:"question" gorm:"foreignKey:QuestionID"`
	Option   TestOption   `json:"option" gorm:"foreignKey:OptionID"`
}

func (TestAnswer) TableName() string {
	return "test_answers"
}

// TestResult is derived once per submission and never edited.
type TestResult struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	PatientID     uint           `json:"patient_id" gorm:"not null;index"`
	TotalScore    int            `json:"total_score" gorm:"not null"`
	Band          DiagnosisBand  `json:"band" gorm:"size:20;not null;index"`
	Diagnosis     string         `json:"diagnosis" gorm:"type:text;not null"`
	SectionScores datatypes.JSON `json:"section_scores" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`

	Patient User         `json:"patient" gorm:"foreignKey:PatientID"`
	Answers []TestAnswer `json:"answers,omitempty" gorm:"foreignKey:ResultID"`
}

func (TestResult) TableName() string {
	return "test_results"
}

type DiagnosisBand string

const (
	BandAdequate    DiagnosisBand = "adequate"
	BandMild        DiagnosisBand = "mild"
	BandModerate    DiagnosisBand = "moderate"
	BandSignificant DiagnosisBand = "significant"
)

var diagnosisText = map[DiagnosisBand]string{
	BandAdequate:    "Bienestar emocional adecuado. Continúa con tus estrategias de afrontamiento positivas.",
	BandMild:        "Leve malestar emocional. Podrías beneficiarte de estrategias adicionales de manejo del estrés.",
	BandModerate:    "Malestar emocional moderado. Recomendable buscar apoyo psicológico y practicar técnicas de relajación.",
	BandSignificant: "Malestar emocional significativo. Es importante buscar ayuda profesional de psicología.",
}

// Diagnose maps a total score onto its band. Each band's upper bound is inclusive.
func Diagnose(score int) (DiagnosisBand, string) {
	var band DiagnosisBand
	switch {
	case score <= 20:
		band = BandAdequate
	case score <= 40:
		band = BandMild
	case score <= 60:
		band = BandModerate
	default:
		band = BandSignificant
	}
	return band, diagnosisText[band]
}
