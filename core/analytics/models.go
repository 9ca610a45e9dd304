package analytics

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
)

// Materialized rows loaded by a Store.
type (
	EnrollmentRow struct {
		enrollment.Enrollment
		User user.Info
	}

	ProgressRow struct {
		progress.Progress
		CourseID string
		TaskType course.TaskType
	}

	// AttemptRow is a quiz attempt with its course and the counts of its responses.
	AttemptRow struct {
		quiz.Attempt
		CourseID       string
		CourseTitle    string
		CorrectAnswers int
		TotalQuestions int
	}

	QuestionStat struct {
		QuestionID       string
		Text             string
		QuizID           string
		QuizTitle        string
		TotalResponses   int
		CorrectResponses int
	}

	ResponseRow struct {
		QuestionID string
		Category   null.String
		Tag        null.String
		IsCorrect  bool
	}

	PlatformStats struct {
		TotalTasks     int
		CompletedTasks int
		AverageScore   float64
		TotalTimeSpent int64
	}
)

// Course analytics
type (
	CourseAnalytics struct {
		EnrollmentStats     EnrollmentStats     `json:"enrollment_stats"`
		CompletionRates     CompletionRates     `json:"completion_rates"`
		AverageScores       AverageScores       `json:"average_scores"`
		ContentDistribution ContentDistribution `json:"content_distribution"`
		ChallengingContent  ChallengingContent  `json:"challenging_content"`
	}

	EnrollmentStats struct {
		Total                int     `json:"total"`
		Active               int     `json:"active"`
		Completed            int     `json:"completed"`
		Dropped              int     `json:"dropped"`
		CompletionPercentage float64 `json:"completion_percentage"`
	}

	CompletionRates struct {
		Average      float64                `json:"average"`
		Distribution CompletionDistribution `json:"distribution"`
	}

	// CompletionDistribution counts per-user completion rates in the bands [0,25) [25,50) [50,75) [75,100].
	CompletionDistribution struct {
		Below25    int `json:"below_25"`
		From25To50 int `json:"25_to_50"`
		From50To75 int `json:"50_to_75"`
		Above75    int `json:"above_75"`
	}

	AverageScores struct {
		Quizzes float64 `json:"quizzes"`
	}

	ContentDistribution struct {
		Reading    int `json:"reading"`
		Video      int `json:"video"`
		Quiz       int `json:"quiz"`
		Assignment int `json:"assignment"`
		Discussion int `json:"discussion"`
	}

	ChallengingContent struct {
		Questions []ChallengingQuestion `json:"questions"`
	}

	ChallengingQuestion struct {
		ID            string  `json:"id"`
		Text          string  `json:"text"`
		Quiz          string  `json:"quiz"`
		SuccessRate   float64 `json:"success_rate"`
		TotalAttempts int     `json:"total_attempts"`
	}
)

// Student progress
type (
	Activity struct {
		TaskTitle string          `json:"task_title"`
		Status    progress.Status `json:"status"`
		UpdatedAt time.Time       `json:"updated_at"`
	}

	ProgressSummary struct {
		CompletionPercentage float64 `json:"completion_percentage"`
		CompletedTasks       int     `json:"completed_tasks"`
		TotalTasks           int     `json:"total_tasks"`
	}

	AssessmentPerformance struct {
		AverageQuizScore float64 `json:"average_quiz_score"`
		QuizAttempts     int     `json:"quiz_attempts"`
	}

	TaskCompletion struct {
		TaskID         string          `json:"task_id"`
		TaskTitle      string          `json:"task_title"`
		TaskType       course.TaskType `json:"task_type"`
		Status         progress.Status `json:"status"`
		CompletionDate null.Time       `json:"completion_date"`
	}

	EnrollmentStatus struct {
		Status         enrollment.Status `json:"status"`
		EnrollmentDate time.Time         `json:"enrollment_date"`
	}

	EngagementMetrics struct {
		RecentActivity []Activity `json:"recent_activity"`
		LastAccess     null.Time  `json:"last_access"`
	}

	// StudentCourseProgress is the progress of one enrollee of a course.
	StudentCourseProgress struct {
		StudentInfo           user.Info             `json:"student_info"`
		EnrollmentStatus      EnrollmentStatus      `json:"enrollment_status"`
		ProgressSummary       ProgressSummary       `json:"progress_summary"`
		TaskCompletion        []TaskCompletion      `json:"task_completion"`
		AssessmentPerformance AssessmentPerformance `json:"assessment_performance"`
		EngagementMetrics     EngagementMetrics     `json:"engagement_metrics"`
	}

	StudentProgress struct {
		UserInfo     user.Info        `json:"user_info"`
		OverallStats OverallStats     `json:"overall_stats"`
		Courses      []CourseProgress `json:"courses"`
	}

	OverallStats struct {
		TotalCourses        int     `json:"total_courses"`
		CompletedCourses    int     `json:"completed_courses"`
		ActiveCourses       int     `json:"active_courses"`
		DroppedCourses      int     `json:"dropped_courses"`
		OverallCompletion   float64 `json:"overall_completion"`
		TotalTasksCompleted int     `json:"total_tasks_completed"`
		TotalTasks          int     `json:"total_tasks"`
		AverageQuizScore    float64 `json:"average_quiz_score"`
	}

	// CourseProgress is the progress of a student in one of their courses.
	CourseProgress struct {
		CourseID              string                `json:"course_id"`
		CourseTitle           string                `json:"course_title"`
		EnrollmentStatus      enrollment.Status     `json:"enrollment_status"`
		EnrollmentDate        time.Time             `json:"enrollment_date"`
		ProgressSummary       ProgressSummary       `json:"progress_summary"`
		AssessmentPerformance AssessmentPerformance `json:"assessment_performance"`
		RecentActivity        []Activity            `json:"recent_activity"`
		LastAccess            null.Time             `json:"last_access"`
	}
)

// Task analytics
type (
	TaskAnalytics struct {
		TaskID               string               `json:"task_id"`
		Title                string               `json:"title"`
		Type                 course.TaskType      `json:"type"`
		CompletionStats      CompletionStats      `json:"completion_stats"`
		DifficultyAssessment DifficultyAssessment `json:"difficulty_assessment"`
		QuizAnalysis         *QuizAnalysis        `json:"quiz_analysis,omitempty"`
	}

	CompletionStats struct {
		TotalStudents          int          `json:"total_students"`
		Completed              int          `json:"completed"`
		InProgress             int          `json:"in_progress"`
		NotStarted             int          `json:"not_started"`
		CompletionRate         float64      `json:"completion_rate"`
		AvgCompletionTimeHours null.Float64 `json:"avg_completion_time_hours"`
	}

	DifficultyAssessment struct {
		EstimatedDifficulty   string       `json:"estimated_difficulty"`
		AvgAttemptsToComplete null.Float64 `json:"avg_attempts_to_complete"`
	}

	QuizAnalysis struct {
		AverageScore     float64            `json:"average_score"`
		TotalAttempts    int                `json:"total_attempts"`
		QuestionAnalysis []QuestionAnalysis `json:"question_analysis"`
	}

	QuestionAnalysis struct {
		QuestionID     string  `json:"question_id"`
		Text           string  `json:"text"`
		SuccessRate    float64 `json:"success_rate"`
		TotalResponses int     `json:"total_responses"`
	}
)

// Difficulty labels
const (
	DifficultyHigh   = "high"
	DifficultyMedium = "medium"
	DifficultyLow    = "low"
)

// Quiz performance
type (
	QuizPerformance struct {
		UserInfo              user.Info             `json:"user_info"`
		OverallStats          QuizOverallStats      `json:"overall_stats"`
		CourseBreakdown       []CourseQuizStats     `json:"course_breakdown"`
		RecentAttempts        []RecentAttempt       `json:"recent_attempts"`
		PerformanceByCategory []CategoryPerformance `json:"performance_by_category"`
	}

	QuizOverallStats struct {
		TotalAttempts int     `json:"total_attempts"`
		AverageScore  float64 `json:"average_score"`
		QuizzesPassed int     `json:"quizzes_passed"`
		QuizzesFailed int     `json:"quizzes_failed"`
		PassRate      float64 `json:"pass_rate"`
	}

	CourseQuizStats struct {
		CourseID      string  `json:"course_id"`
		CourseTitle   string  `json:"course_title"`
		TotalQuizzes  int     `json:"total_quizzes"`
		TotalAttempts int     `json:"total_attempts"`
		AverageScore  float64 `json:"average_score"`
		HighestScore  float64 `json:"highest_score"`
		LowestScore   float64 `json:"lowest_score"`
	}

	RecentAttempt struct {
		AttemptID      string      `json:"attempt_id"`
		QuizID         string      `json:"quiz_id"`
		QuizTitle      string      `json:"quiz_title"`
		CourseTitle    string      `json:"course_title"`
		Score          float64     `json:"score"`
		CorrectAnswers int         `json:"correct_answers"`
		TotalQuestions int         `json:"total_questions"`
		SubmissionDate null.Time   `json:"submission_date"`
		TimeSpent      null.String `json:"time_spent"`
	}

	CategoryPerformance struct {
		Category       string  `json:"category"`
		TotalQuestions int     `json:"total_questions"`
		CorrectAnswers int     `json:"correct_answers"`
		SuccessRate    float64 `json:"success_rate"`
	}
)

// Dashboards
type (
	InstructorDashboard struct {
		CoursesCreated   int        `json:"courses_created"`
		StudentsEnrolled int        `json:"students_enrolled"`
		RecentActivity   []Activity `json:"recent_activity"`
	}

	AdminDashboard struct {
		TotalCompletedTasks         int     `json:"total_completed_tasks"`
		TotalTasks                  int     `json:"total_tasks"`
		OverallAverageScore         float64 `json:"overall_average_score"`
		OverallCompletionPercentage float64 `json:"overall_completion_percentage"`
		TotalTimeSpent              int64   `json:"total_time_spent"`
	}
)
