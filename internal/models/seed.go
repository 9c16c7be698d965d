package models

// AllModels lists every table in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&User{}, &Profile{},
		&ResourceCategory{}, &Resource{},
		&Inquiry{}, &InquiryReply{},
		&ForumCategory{}, &Thread{}, &ForumReply{}, &ThreadVote{}, &ReplyVote{},
		&TestQuestion{}, &TestOption{}, &TestResult{}, &TestAnswer{},
		&PersonalizedContent{},
	}
}

// Frequency scale shared by every question of the questionnaire.
var defaultOptionScale = []TestOption{
	{Value: "never", Text: "Nunca", Points: 0},
	{Value: "rarely", Text: "Rara vez", Points: 1},
	{Value: "sometimes", Text: "A veces", Points: 2},
	{Value: "often", Text: "Frecuentemente", Points: 3},
	{Value: "always", Text: "Siempre", Points: 4},
}

var defaultQuestionText = []struct {
	section TestSection
	text    string
}{
	{SectionA, "Me he sentido triste o decaído sin una razón clara."},
	{SectionA, "He perdido interés en actividades que antes disfrutaba."},
	{SectionA, "Me he sentido sin esperanza respecto al futuro."},
	{SectionA, "He tenido cambios bruscos de humor."},
	{SectionA, "Me he sentido culpable o sin valor."},
	{SectionA, "He sentido ganas de llorar con facilidad."},
	{SectionA, "Me ha costado sentir satisfacción por mis logros."},
	{SectionB, "Me he sentido nervioso, ansioso o con los nervios de punta."},
	{SectionB, "No he podido dejar de preocuparme."},
	{SectionB, "He tenido dificultad para relajarme."},
	{SectionB, "He sentido tensión muscular o dolores sin causa médica."},
	{SectionB, "Me he sentido abrumado por mis responsabilidades."},
	{SectionB, "He tenido dificultades para conciliar o mantener el sueño."},
	{SectionB, "Me he irritado con facilidad."},
	{SectionC, "Me ha costado concentrarme en mis estudios o trabajo."},
	{SectionC, "He evitado el contacto con familiares o amigos."},
	{SectionC, "He descuidado mi alimentación o mi higiene."},
	{SectionC, "Me he sentido solo aunque estuviera acompañado."},
	{SectionC, "He tenido problemas para cumplir mis tareas diarias."},
	{SectionC, "He sentido que nadie me comprende."},
}

// DefaultTestQuestions builds the fixed questionnaire with fresh option slices.
func DefaultTestQuestions() []TestQuestion {
	questions := make([]TestQuestion, 0, len(defaultQuestionText))
	for i, q := range defaultQuestionText {
		options := make([]TestOption, len(defaultOptionScale))
		copy(options, defaultOptionScale)
		questions = append(questions, TestQuestion{
			Number:  i + 1,
			Section: q.section,
			Text:    q.text,
			Options: options,
		})
	}
	return questions
}
