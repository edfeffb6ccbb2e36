package tutor

import (
	"fmt"
	"strings"
	"time"

	"CuteTutor/internal/models"
)

const (
	SpeakerChild = "child"
	SpeakerTutor = "tutor"
)

// 상담 대화 한 턴
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

func TutorPrompt(topic, level, styleName string) string {
	style, ok := GetStyle(styleName)
	if !ok {
		style, _ = GetStyle(DefaultStyle)
	}
	return fmt.Sprintf("You are Cute Tutor. Explain '%s' to a %s student using %s approach (%s). Make it fun and clear.",
		topic, level, style.Name, style.Tips)
}

func CounselorPrompt(history []Turn) string {
	lines := make([]string, 0, len(history))
	for _, t := range history {
		if t.Speaker == SpeakerChild {
			lines = append(lines, "Child: "+t.Text)
		} else {
			lines = append(lines, "Cute Tutor: "+t.Text)
		}
	}
	return "You are Cute Tutor, a gentle counselor.\n" + strings.Join(lines, "\n") + "\nCute Tutor:"
}

// 리포트 작성 시 보호자가 입력하는 메모
type ReportNotes struct {
	Topics       string `json:"topics"`
	Emotions     string `json:"emotions"`
	Improvements string `json:"improvements"`
}

const summaryContentLimit = 200

// TopicsSummary lists each tutor session with the first 200 characters of its content.
func TopicsSummary(history []models.TutorSession) string {
	lines := make([]string, 0, len(history))
	for _, t := range history {
		content := []rune(t.Content)
		if len(content) > summaryContentLimit {
			content = content[:summaryContentLimit]
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %s…", t.Topic, t.Level, string(content)))
	}
	return strings.Join(lines, "\n")
}

func ReportPrompt(user *models.User, notes ReportNotes, now time.Time) string {
	summary := orDefault(TopicsSummary(user.TutorHistory), "None this week.")
	emotions := orDefault(notes.Emotions, "No notes provided.")
	improvements := orDefault(notes.Improvements, "No issues noted.")

	var b strings.Builder
	b.WriteString("\nYou are an educational counselor.\n\n")
	fmt.Fprintf(&b, "Write a concise weekly report (bullet style) for parent %s about %s (contact %s). Date: %s\n\n",
		user.ParentName, user.StudentName, user.ParentPhone, now.Format("02 January 2006"))
	fmt.Fprintf(&b, "1. Topics Covered:\n%s\n\n", summary)
	if strings.TrimSpace(notes.Topics) != "" {
		fmt.Fprintf(&b, "Performance notes:\n%s\n\n", notes.Topics)
	}
	fmt.Fprintf(&b, "2. Emotional Well-being:\n%s\n\n", emotions)
	fmt.Fprintf(&b, "3. Areas for Improvement & Recommendations:\n%s\n\n", improvements)
	b.WriteString("If the student is auditory, suggest podcasts or read-aloud tools.\n\n")
	b.WriteString("End with: Best regards, Cute Tutor.")
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
