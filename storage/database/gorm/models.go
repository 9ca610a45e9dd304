package gormrepos

import (
	"time"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
)

// Table models. Timestamps are always set by the services, gorm never fills them.
type (
	userModel struct {
		ID           string     `gorm:"primaryKey;size:36"`
		Username     string     `gorm:"size:150;not null;uniqueIndex:users_username_key"`
		Email        string     `gorm:"size:254;not null"`
		FirstName    string     `gorm:"size:150;not null"`
		LastName     string     `gorm:"size:150;not null"`
		Role         string     `gorm:"size:20;not null"`
		IsStaff      bool       `gorm:"not null"`
		IsActive     bool       `gorm:"not null"`
		PasswordHash []byte     `gorm:"not null"`
		CreatedAt    time.Time  `gorm:"not null;autoCreateTime:false"`
		UpdatedAt    time.Time  `gorm:"not null;autoUpdateTime:false"`
		LastLogin    *time.Time ``
	}

	courseModel struct {
		ID                 string     `gorm:"primaryKey;size:36"`
		Title              string     `gorm:"size:200;not null"`
		Description        string     `gorm:"not null"`
		CreatorID          string     `gorm:"size:36;not null;index:courses_creator_idx"`
		Creator            *userModel `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE"`
		LearningObjectives string     `gorm:"not null"`
		Prerequisites      string     `gorm:"not null"`
		CreatedAt          time.Time  `gorm:"not null;autoCreateTime:false"`
		UpdatedAt          time.Time  `gorm:"not null;autoUpdateTime:false"`
	}

	taskModel struct {
		ID          string       `gorm:"primaryKey;size:36"`
		CourseID    string       `gorm:"size:36;not null;index:learning_tasks_course_idx"`
		Course      *courseModel `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
		Title       string       `gorm:"size:200;not null"`
		Description string       `gorm:"not null"`
		Type        string       `gorm:"size:20;not null"`
		Order       int          `gorm:"column:order;not null"`
		MaxAttempts *int         ``
		CreatedAt   time.Time    `gorm:"not null;autoCreateTime:false"`
		UpdatedAt   time.Time    `gorm:"not null;autoUpdateTime:false"`
	}

	questionModel struct {
		ID       string        `gorm:"primaryKey;size:36"`
		QuizID   string        `gorm:"size:36;not null;index:quiz_questions_quiz_idx"`
		Quiz     *taskModel    `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
		Text     string        `gorm:"not null"`
		Category *string       `gorm:"size:100"`
		Tag      *string       `gorm:"size:100"`
		Order    int           `gorm:"column:order;not null"`
		Options  []optionModel `gorm:"foreignKey:QuestionID"`
	}

	optionModel struct {
		ID         string         `gorm:"primaryKey;size:36"`
		QuestionID string         `gorm:"size:36;not null;index:quiz_options_question_idx"`
		Question   *questionModel `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
		Text       string         `gorm:"not null"`
		IsCorrect  bool           `gorm:"not null"`
		Order      int            `gorm:"column:order;not null"`
	}

	enrollmentModel struct {
		ID             string       `gorm:"primaryKey;size:36"`
		UserID         string       `gorm:"size:36;not null;uniqueIndex:course_enrollments_user_course_uniq"`
		User           *userModel   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
		CourseID       string       `gorm:"size:36;not null;uniqueIndex:course_enrollments_user_course_uniq;index:course_enrollments_course_idx"`
		Course         *courseModel `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
		Status         string       `gorm:"size:20;not null"`
		EnrollmentDate time.Time    `gorm:"not null"`
		UpdatedAt      time.Time    `gorm:"not null;autoUpdateTime:false"`
	}

	progressModel struct {
		ID             string     `gorm:"primaryKey;size:36"`
		UserID         string     `gorm:"size:36;not null;uniqueIndex:task_progress_user_task_uniq"`
		User           *userModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
		TaskID         string     `gorm:"size:36;not null;uniqueIndex:task_progress_user_task_uniq;index:task_progress_task_idx"`
		Task           *taskModel `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
		Status         string     `gorm:"size:20;not null"`
		StartDate      *time.Time ``
		CompletionDate *time.Time ``
		TimeSpent      int64      `gorm:"not null"`
		CreatedAt      time.Time  `gorm:"not null;autoCreateTime:false"`
		UpdatedAt      time.Time  `gorm:"not null;autoUpdateTime:false"`
	}

	attemptModel struct {
		ID             string     `gorm:"primaryKey;size:36"`
		UserID         string     `gorm:"size:36;not null;index:quiz_attempts_user_quiz_idx"`
		User           *userModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
		QuizID         string     `gorm:"size:36;not null;index:quiz_attempts_user_quiz_idx"`
		Quiz           *taskModel `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
		StartDate      *time.Time ``
		SubmissionDate *time.Time ``
		IsSubmitted    bool       `gorm:"not null"`
		Score          float64    `gorm:"not null"`
	}

	responseModel struct {
		ID               string         `gorm:"primaryKey;size:36"`
		AttemptID        string         `gorm:"column:quiz_attempt_id;size:36;not null;index:quiz_responses_attempt_idx"`
		Attempt          *attemptModel  `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
		QuestionID       string         `gorm:"size:36;not null;index:quiz_responses_question_idx"`
		Question         *questionModel `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
		SelectedOptionID *string        `gorm:"size:36"`
		SelectedOption   *optionModel   `gorm:"foreignKey:SelectedOptionID;constraint:OnDelete:SET NULL"`
		IsCorrect        bool           `gorm:"not null"`
		CreatedAt        time.Time      `gorm:"not null;autoCreateTime:false"`
	}
)

func (userModel) TableName() string       { return "users" }
func (courseModel) TableName() string     { return "courses" }
func (taskModel) TableName() string       { return "learning_tasks" }
func (questionModel) TableName() string   { return "quiz_questions" }
func (optionModel) TableName() string     { return "quiz_options" }
func (enrollmentModel) TableName() string { return "course_enrollments" }
func (progressModel) TableName() string   { return "task_progress" }
func (attemptModel) TableName() string    { return "quiz_attempts" }
func (responseModel) TableName() string   { return "quiz_responses" }

// AutoMigrate creates the schema from the table models. Postgres uses the SQL migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userModel{},
		&courseModel{},
		&taskModel{},
		&questionModel{},
		&optionModel{},
		&enrollmentModel{},
		&progressModel{},
		&attemptModel{},
		&responseModel{},
	)
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func toUserModel(usr user.User) *userModel {
	return &userModel{
		ID:           usr.ID,
		Username:     usr.Username,
		Email:        usr.Email,
		FirstName:    usr.FirstName,
		LastName:     usr.LastName,
		Role:         string(usr.Role),
		IsStaff:      usr.IsStaff,
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    utcPtr(usr.LastLogin),
	}
}

func (m *userModel) toUser() user.User {
	return user.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Role:         user.Role(m.Role),
		IsStaff:      m.IsStaff,
		IsActive:     m.IsActive,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
		LastLogin:    nullTime(m.LastLogin),
	}
}

func toCourseModel(crs course.Course) *courseModel {
	return &courseModel{
		ID:                 crs.ID,
		Title:              crs.Title,
		Description:        crs.Description,
		CreatorID:          crs.CreatorID,
		LearningObjectives: crs.LearningObjectives,
		Prerequisites:      crs.Prerequisites,
		CreatedAt:          crs.CreatedAt.UTC(),
		UpdatedAt:          crs.UpdatedAt.UTC(),
	}
}

func (m *courseModel) toCourse() course.Course {
	return course.Course{
		ID:                 m.ID,
		Title:              m.Title,
		Description:        m.Description,
		CreatorID:          m.CreatorID,
		LearningObjectives: m.LearningObjectives,
		Prerequisites:      m.Prerequisites,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

func toTaskModel(task course.Task) *taskModel {
	return &taskModel{
		ID:          task.ID,
		CourseID:    task.CourseID,
		Title:       task.Title,
		Description: task.Description,
		Type:        string(task.Type),
		Order:       task.Order,
		MaxAttempts: task.MaxAttempts.Ptr(),
		CreatedAt:   task.CreatedAt.UTC(),
		UpdatedAt:   task.UpdatedAt.UTC(),
	}
}

func (m *taskModel) toTask() course.Task {
	return course.Task{
		ID:          m.ID,
		CourseID:    m.CourseID,
		Title:       m.Title,
		Description: m.Description,
		Type:        course.TaskType(m.Type),
		Order:       m.Order,
		MaxAttempts: null.IntFromPtr(m.MaxAttempts),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

func toQuestionModel(q course.Question) *questionModel {
	m := &questionModel{
		ID:       q.ID,
		QuizID:   q.QuizID,
		Text:     q.Text,
		Category: q.Category.Ptr(),
		Tag:      q.Tag.Ptr(),
		Order:    q.Order,
		Options:  make([]optionModel, 0, len(q.Options)),
	}
	for _, opt := range q.Options {
		m.Options = append(m.Options, optionModel{
			ID:         opt.ID,
			QuestionID: q.ID,
			Text:       opt.Text,
			IsCorrect:  opt.IsCorrect,
			Order:      opt.Order,
		})
	}
	return m
}

func (m *questionModel) toQuestion() course.Question {
	q := course.Question{
		ID:       m.ID,
		QuizID:   m.QuizID,
		Text:     m.Text,
		Category: null.StringFromPtr(m.Category),
		Tag:      null.StringFromPtr(m.Tag),
		Order:    m.Order,
		Options:  make([]course.Option, 0, len(m.Options)),
	}
	for _, opt := range m.Options {
		q.Options = append(q.Options, course.Option{
			ID:         opt.ID,
			QuestionID: opt.QuestionID,
			Text:       opt.Text,
			IsCorrect:  opt.IsCorrect,
			Order:      opt.Order,
		})
	}
	return q
}

func toEnrollmentModel(enr enrollment.Enrollment) *enrollmentModel {
	return &enrollmentModel{
		ID:             enr.ID,
		UserID:         enr.UserID,
		CourseID:       enr.CourseID,
		Status:         string(enr.Status),
		EnrollmentDate: enr.EnrollmentDate.UTC(),
		UpdatedAt:      enr.UpdatedAt.UTC(),
	}
}

func (m *enrollmentModel) toEnrollment() enrollment.Enrollment {
	enr := enrollment.Enrollment{
		ID:             m.ID,
		UserID:         m.UserID,
		CourseID:       m.CourseID,
		Status:         enrollment.Status(m.Status),
		EnrollmentDate: m.EnrollmentDate.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
	if m.Course != nil {
		enr.CourseTitle = m.Course.Title
	}
	return enr
}

func toProgressModel(p progress.Progress) *progressModel {
	return &progressModel{
		ID:             p.ID,
		UserID:         p.UserID,
		TaskID:         p.TaskID,
		Status:         string(p.Status),
		StartDate:      utcPtr(p.StartDate),
		CompletionDate: utcPtr(p.CompletionDate),
		TimeSpent:      p.TimeSpent,
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
}

func (m *progressModel) toProgress() progress.Progress {
	p := progress.Progress{
		ID:             m.ID,
		UserID:         m.UserID,
		TaskID:         m.TaskID,
		Status:         progress.Status(m.Status),
		StartDate:      nullTime(m.StartDate),
		CompletionDate: nullTime(m.CompletionDate),
		TimeSpent:      m.TimeSpent,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
	if m.Task != nil {
		p.TaskTitle = m.Task.Title
	}
	return p
}

func toAttemptModel(att quiz.Attempt) *attemptModel {
	m := &attemptModel{
		ID:             att.ID,
		UserID:         att.UserID,
		QuizID:         att.QuizID,
		SubmissionDate: utcPtr(att.SubmissionDate),
		IsSubmitted:    att.IsSubmitted,
		Score:          att.Score,
	}
	if !att.StartDate.IsZero() {
		start := att.StartDate.UTC()
		m.StartDate = &start
	}
	return m
}

func (m *attemptModel) toAttempt() quiz.Attempt {
	att := quiz.Attempt{
		ID:             m.ID,
		UserID:         m.UserID,
		QuizID:         m.QuizID,
		SubmissionDate: nullTime(m.SubmissionDate),
		IsSubmitted:    m.IsSubmitted,
		Score:          m.Score,
	}
	if m.StartDate != nil {
		att.StartDate = m.StartDate.UTC()
	}
	if m.Quiz != nil {
		att.QuizTitle = m.Quiz.Title
	}
	return att
}

func toResponseModel(r quiz.Response) *responseModel {
	return &responseModel{
		ID:               r.ID,
		AttemptID:        r.AttemptID,
		QuestionID:       r.QuestionID,
		SelectedOptionID: r.SelectedOptionID.Ptr(),
		IsCorrect:        r.IsCorrect,
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

func (m *responseModel) toResponse() quiz.Response {
	return quiz.Response{
		ID:               m.ID,
		AttemptID:        m.AttemptID,
		QuestionID:       m.QuestionID,
		SelectedOptionID: null.StringFromPtr(m.SelectedOptionID),
		IsCorrect:        m.IsCorrect,
		CreatedAt:        m.CreatedAt.UTC(),
	}
}
