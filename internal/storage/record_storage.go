package storage

import "CuteTutor/internal/models"

// AppendTutorSession appends entry to the tutor history of username.
func AppendTutorSession(users Users, username string, entry models.TutorSession) error {
	user, exists := users[username]
	if !exists {
		return ErrUserNotFound
	}
	user.TutorHistory = append(user.TutorHistory, entry)
	return nil
}

// AppendReport appends entry to the saved reports of username.
func AppendReport(users Users, username string, entry models.Report) error {
	user, exists := users[username]
	if !exists {
		return ErrUserNotFound
	}
	user.Reports = append(user.Reports, entry)
	return nil
}

// FindReport returns the first report saved with date.
func FindReport(user *models.User, date string) (models.Report, bool) {
	for _, r := range user.Reports {
		if r.Date == date {
			return r, true
		}
	}
	return models.Report{}, false
}

// ReportDates lists report dates newest first.
func ReportDates(user *models.User) []string {
	dates := make([]string, 0, len(user.Reports))
	for i := len(user.Reports) - 1; i >= 0; i-- {
		dates = append(dates, user.Reports[i].Date)
	}
	return dates
}
