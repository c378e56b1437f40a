package telegram

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"quiz-bot/internal/domain"
)

// Button labels and fixed replies.
const (
	buttonQuiz      = "Квиз"
	buttonResults   = "Результаты"
	buttonReference = "Справочник"
	buttonNext      = "Следующий вопрос ➡️"

	textGreeting        = "Проверь свои знания!"
	textNoAttempt       = "Вы пока не принимали участия в квизе!\n"
	textNoParticipants  = "\nОго! Еще никто не принимал участия в квизе, у вас есть возможность стать первым!"
	textChooseDocument  = "Выберите раздел справочника:"
	textNoDocuments     = "Справочник пока пуст."
	textNoActiveQuiz    = "Квиз не запущен. Нажмите «Квиз», чтобы начать."
	textCancelled       = "Квиз отменён. Результаты не сохранены."
	textNothingToCancel = "Нет активного квиза."
	textUnknownAnswer   = "Такого варианта ответа нет."
	textDocumentMissing = "Документ не найден."
	textNotSaved        = "\n⚠️ Не удалось сохранить результат, попробуйте пройти квиз позже."
	textTryLater        = "Что-то пошло не так, попробуйте позже."
)

// Callback data prefixes. Answer and next buttons carry the attempt token and the
// question index: "a|<attempt>|<question>|<answer>" and "n|<attempt>|<question>".
const (
	callbackAnswer   = "a|"
	callbackNext     = "n|"
	callbackDocument = "d|"
)

func answerData(attempt string, question, answer int) string {
	return callbackAnswer + attempt + "|" + strconv.Itoa(question) + "|" + strconv.Itoa(answer)
}

func nextData(attempt string, question int) string {
	return callbackNext + attempt + "|" + strconv.Itoa(question)
}

// parseCallback splits the part after the prefix into the attempt token and n
// integers. ok is false on any malformed field.
func parseCallback(raw string, n int) (attempt string, nums []int, ok bool) {
	parts := strings.Split(raw, "|")
	if len(parts) != n+1 || parts[0] == "" {
		return "", nil, false
	}
	nums = make([]int, n)
	for i, p := range parts[1:] {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return "", nil, false
		}
		nums[i] = v
	}
	return parts[0], nums, true
}

func mainMenu() *ReplyKeyboardMarkup {
	return &ReplyKeyboardMarkup{
		Keyboard: [][]KeyboardButton{
			{{Text: buttonQuiz}},
			{{Text: buttonResults}},
			{{Text: buttonReference}},
		},
		ResizeKeyboard: true,
	}
}

// questionText renders "👉 Вопрос №N: text" plus the restated answers when requested.
// index is the zero-based catalog position.
func questionText(q domain.Question, index int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👉 <b>Вопрос №%d</b>: %s", index+1, html.EscapeString(q.Text))
	if q.Options.RepeatAnswers {
		b.WriteString("\n\n<i>Варианты ответа</i>:\n")
		for _, answer := range q.Answers {
			b.WriteString(html.EscapeString(answer))
			b.WriteString("\n")
		}
	} else {
		b.WriteString("\n")
	}
	return b.String()
}

// progressText is the question text followed by the answers chosen so far.
func progressText(q domain.Question, progress domain.AnswerProgress) string {
	text := questionText(q, progress.Index)
	if len(progress.Selected) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n<i>Ваши ответы</i>:\n")
	for _, answer := range progress.Selected {
		b.WriteString(html.EscapeString(answer))
		b.WriteString("\n")
	}
	return b.String()
}

// answersKeyboard lists the not yet selected answers by their catalog index, then "next".
// Buttons are bound to the attempt and question index so taps on an old message are rejected.
func answersKeyboard(q domain.Question, attempt string, index int, selected []string) *InlineKeyboardMarkup {
	chosen := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		chosen[s] = struct{}{}
	}
	rows := make([][]InlineKeyboardButton, 0, len(q.Answers)+1)
	for i, answer := range q.Answers {
		if _, ok := chosen[answer]; ok {
			continue
		}
		rows = append(rows, []InlineKeyboardButton{{
			Text:         answer,
			CallbackData: answerData(attempt, index, i),
		}})
	}
	rows = append(rows, []InlineKeyboardButton{{Text: buttonNext, CallbackData: nextData(attempt, index)}})
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

func documentsKeyboard(docs []domain.Document) *InlineKeyboardMarkup {
	rows := make([][]InlineKeyboardButton, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, []InlineKeyboardButton{{
			Text:         doc.Title,
			CallbackData: callbackDocument + doc.ID,
		}})
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

// reportText renders the score line and per-question ✅/❌ details.
func reportText(result domain.AttemptResult, withHeader bool) string {
	var b strings.Builder
	if withHeader {
		b.WriteString("👍 Вы ответили на все вопросы викторины!\n")
	}
	fmt.Fprintf(&b, "Правильных ответов: <b>%d</b> из <b>%d</b>\n", result.Score, result.Total)
	b.WriteString("<i>Подробности</i>:\n")
	for _, grade := range result.Grades {
		mark := "❌"
		if grade.Correct {
			mark = "✅"
		}
		fmt.Fprintf(&b, "Вопрос %d - %s\n", grade.Number, mark)
	}
	return b.String()
}

// statsText renders the aggregate, or the "nobody yet" invitation when empty.
func statsText(stats domain.AggregateStats) string {
	if !stats.HasParticipants() {
		return textNoParticipants
	}
	return fmt.Sprintf(
		"\n<i>Статистика:</i>\nВсего участников квиза - %d\nСреднее количество правильных ответов - %.2f",
		stats.ParticipantCount,
		stats.MeanScore,
	)
}

// resultsText is the "Результаты" reply.
func resultsText(res domain.UserResults) string {
	text := textNoAttempt
	if res.Attempt != nil {
		text = reportText(*res.Attempt, false)
	}
	return text + statsText(res.Aggregate)
}
