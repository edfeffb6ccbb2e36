package models

// DateLayout is the calendar date format stored in tutor_history and reports.
const DateLayout = "2006-01-02"

// 튜터 세션 기록 하나
type TutorSession struct {
	Topic   string `json:"topic"`
	Level   string `json:"level"`
	Style   string `json:"style"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

// 주간 리포트 기록 하나
type Report struct {
	Date   string `json:"date"`
	Report string `json:"report"`
}
