package models

// 회원 계정 레코드, users.json의 값 하나에 대응
type User struct {
	Password     string         `json:"password"`
	StudentName  string         `json:"student_name"`
	ParentName   string         `json:"parent_name"`
	ParentPhone  string         `json:"parent_phone"`
	TutorHistory []TutorSession `json:"tutor_history"`
	Reports      []Report       `json:"reports"`
}

// 학생 및 보호자 정보 (Home 화면 폼)
type UserProfile struct {
	StudentName string `json:"student_name" example:"Mina"`
	ParentName  string `json:"parent_name" example:"Jisoo"`
	ParentPhone string `json:"parent_phone" example:"010-1234-5678"`
}

// Profile returns the editable part of the record.
func (u *User) Profile() UserProfile {
	return UserProfile{
		StudentName: u.StudentName,
		ParentName:  u.ParentName,
		ParentPhone: u.ParentPhone,
	}
}

// nil 슬라이스를 빈 슬라이스로 맞춰 JSON에 null 대신 []가 기록되도록 함
func (u *User) Normalize() {
	if u.TutorHistory == nil {
		u.TutorHistory = []TutorSession{}
	}
	if u.Reports == nil {
		u.Reports = []Report{}
	}
}
