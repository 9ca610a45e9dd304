package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/user"
)

const (
	passingScore              = 60.0
	challengingRate           = 50.0
	challengingMinResponses   = 5
	maxChallengingQuestions   = 10
	courseRecentActivities    = 5
	studentRecentActivities   = 3
	recentAttempts            = 5
	dashboardRecentActivities = 5
)

// round2 rounds f to 2 decimals.
func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// elapsed renders d as H:MM:SS, truncated to the second. Hours are not wrapped into days.
func elapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

// percent returns 100 * n / total, 0 when total is 0.
func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func submittedScores(attempts []AttemptRow) []float64 {
	scores := make([]float64, 0, len(attempts))
	for _, att := range attempts {
		if att.IsSubmitted {
			scores = append(scores, att.Score)
		}
	}
	return scores
}

// recentActivity returns the `limit` most recently updated rows, newest first.
func recentActivity(rows []ProgressRow, limit int) []Activity {
	sorted := make([]ProgressRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt) })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	activities := make([]Activity, 0, len(sorted))
	for _, row := range sorted {
		activities = append(activities, Activity{TaskTitle: row.TaskTitle, Status: row.Status, UpdatedAt: row.UpdatedAt})
	}
	return activities
}

func lastAccess(rows []ProgressRow) null.Time {
	var last null.Time
	for _, row := range rows {
		if !last.Valid || row.UpdatedAt.After(last.Time) {
			last.SetValid(row.UpdatedAt)
		}
	}
	return last
}

func countCompleted(rows []ProgressRow) int {
	var n int
	for _, row := range rows {
		if row.Status == progress.StatusCompleted {
			n++
		}
	}
	return n
}

// CompletionBands partitions rates into the four completion bands.
func CompletionBands(rates []float64) CompletionDistribution {
	var dist CompletionDistribution
	for _, r := range rates {
		switch {
		case r < 25:
			dist.Below25++
		case r < 50:
			dist.From25To50++
		case r < 75:
			dist.From50To75++
		default:
			dist.Above75++
		}
	}
	return dist
}

// ChallengingQuestions keeps the questions answered at least 5 times with a success rate below 50,
// weakest first, at most 10.
func ChallengingQuestions(stats []QuestionStat) []ChallengingQuestion {
	questions := make([]ChallengingQuestion, 0)
	for _, st := range stats {
		if st.TotalResponses < challengingMinResponses {
			continue
		}
		rate := percent(st.CorrectResponses, st.TotalResponses)
		if rate >= challengingRate {
			continue
		}
		questions = append(questions, ChallengingQuestion{
			ID:            st.QuestionID,
			Text:          st.Text,
			Quiz:          st.QuizTitle,
			SuccessRate:   round2(rate),
			TotalAttempts: st.TotalResponses,
		})
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].SuccessRate < questions[j].SuccessRate })
	if len(questions) > maxChallengingQuestions {
		questions = questions[:maxChallengingQuestions]
	}
	return questions
}

// Difficulty labels a task from its completion rate.
func Difficulty(completionRate float64) string {
	switch {
	case completionRate < 50:
		return DifficultyHigh
	case completionRate < 80:
		return DifficultyMedium
	default:
		return DifficultyLow
	}
}

// BuildCourseAnalytics aggregates the rows of one course.
// Per-user completion rates only cover users with at least one progress row.
func BuildCourseAnalytics(
	tasks []course.Task,
	enrollments []EnrollmentRow,
	progressRows []ProgressRow,
	attempts []AttemptRow,
	questions []QuestionStat,
) CourseAnalytics {
	var report CourseAnalytics

	es := &report.EnrollmentStats
	es.Total = len(enrollments)
	for _, enr := range enrollments {
		switch enr.Status {
		case enrollment.StatusActive:
			es.Active++
		case enrollment.StatusCompleted:
			es.Completed++
		case enrollment.StatusDropped:
			es.Dropped++
		}
	}
	es.CompletionPercentage = round2(percent(es.Completed, es.Total))

	completedByUser := make(map[string]int)
	var users []string
	for _, row := range progressRows {
		if _, ok := completedByUser[row.UserID]; !ok {
			completedByUser[row.UserID] = 0
			users = append(users, row.UserID)
		}
		if row.Status == progress.StatusCompleted {
			completedByUser[row.UserID]++
		}
	}
	var rates []float64
	if len(tasks) > 0 {
		rates = make([]float64, 0, len(users))
		for _, uid := range users {
			rates = append(rates, percent(completedByUser[uid], len(tasks)))
		}
	}
	report.CompletionRates = CompletionRates{
		Average:      round2(mean(rates)),
		Distribution: CompletionBands(rates),
	}

	report.AverageScores.Quizzes = round2(mean(submittedScores(attempts)))

	cd := &report.ContentDistribution
	for _, t := range tasks {
		switch t.Type {
		case course.TaskTypeReading:
			cd.Reading++
		case course.TaskTypeVideo:
			cd.Video++
		case course.TaskTypeQuiz:
			cd.Quiz++
		case course.TaskTypeAssignment:
			cd.Assignment++
		case course.TaskTypeDiscussion:
			cd.Discussion++
		}
	}

	report.ChallengingContent.Questions = ChallengingQuestions(questions)
	return report
}

// BuildCourseStudentProgress builds the progress of every enrollee of a course, most advanced first.
func BuildCourseStudentProgress(
	tasks []course.Task,
	enrollments []EnrollmentRow,
	progressRows []ProgressRow,
	attempts []AttemptRow,
) []StudentCourseProgress {
	rowsByUser := make(map[string][]ProgressRow)
	for _, row := range progressRows {
		rowsByUser[row.UserID] = append(rowsByUser[row.UserID], row)
	}
	attemptsByUser := make(map[string][]AttemptRow)
	for _, att := range attempts {
		attemptsByUser[att.UserID] = append(attemptsByUser[att.UserID], att)
	}

	report := make([]StudentCourseProgress, 0, len(enrollments))
	for _, enr := range enrollments {
		rows := rowsByUser[enr.UserID]
		byTask := make(map[string]ProgressRow, len(rows))
		for _, row := range rows {
			if _, ok := byTask[row.TaskID]; !ok {
				byTask[row.TaskID] = row
			}
		}

		breakdown := make([]TaskCompletion, 0, len(tasks))
		for _, t := range tasks {
			tc := TaskCompletion{TaskID: t.ID, TaskTitle: t.Title, TaskType: t.Type, Status: progress.StatusNotStarted}
			if row, ok := byTask[t.ID]; ok {
				tc.Status = row.Status
				tc.CompletionDate = row.CompletionDate
			}
			breakdown = append(breakdown, tc)
		}

		completed := countCompleted(rows)
		scores := submittedScores(attemptsByUser[enr.UserID])
		report = append(report, StudentCourseProgress{
			StudentInfo:      enr.User,
			EnrollmentStatus: EnrollmentStatus{Status: enr.Status, EnrollmentDate: enr.EnrollmentDate},
			ProgressSummary: ProgressSummary{
				CompletionPercentage: round2(percent(completed, len(tasks))),
				CompletedTasks:       completed,
				TotalTasks:           len(tasks),
			},
			TaskCompletion: breakdown,
			AssessmentPerformance: AssessmentPerformance{
				AverageQuizScore: round2(mean(scores)),
				QuizAttempts:     len(scores),
			},
			EngagementMetrics: EngagementMetrics{
				RecentActivity: recentActivity(rows, courseRecentActivities),
				LastAccess:     lastAccess(rows),
			},
		})
	}

	sort.SliceStable(report, func(i, j int) bool {
		return report[i].ProgressSummary.CompletionPercentage > report[j].ProgressSummary.CompletionPercentage
	})
	return report
}

// BuildStudentProgress builds the progress of a user across their courses, latest enrollment first.
// The average quiz score covers every submitted attempt of the user.
func BuildStudentProgress(
	info user.Info,
	enrollments []EnrollmentRow,
	tasks []course.Task,
	progressRows []ProgressRow,
	attempts []AttemptRow,
) StudentProgress {
	tasksByCourse := make(map[string]int)
	for _, t := range tasks {
		tasksByCourse[t.CourseID]++
	}
	rowsByCourse := make(map[string][]ProgressRow)
	for _, row := range progressRows {
		rowsByCourse[row.CourseID] = append(rowsByCourse[row.CourseID], row)
	}
	attemptsByCourse := make(map[string][]AttemptRow)
	for _, att := range attempts {
		attemptsByCourse[att.CourseID] = append(attemptsByCourse[att.CourseID], att)
	}

	report := StudentProgress{UserInfo: info, Courses: make([]CourseProgress, 0, len(enrollments))}
	stats := &report.OverallStats
	stats.TotalCourses = len(enrollments)

	for _, enr := range enrollments {
		switch enr.Status {
		case enrollment.StatusActive:
			stats.ActiveCourses++
		case enrollment.StatusCompleted:
			stats.CompletedCourses++
		case enrollment.StatusDropped:
			stats.DroppedCourses++
		}

		rows := rowsByCourse[enr.CourseID]
		total := tasksByCourse[enr.CourseID]
		completed := countCompleted(rows)
		stats.TotalTasks += total
		stats.TotalTasksCompleted += completed

		scores := submittedScores(attemptsByCourse[enr.CourseID])
		report.Courses = append(report.Courses, CourseProgress{
			CourseID:         enr.CourseID,
			CourseTitle:      enr.CourseTitle,
			EnrollmentStatus: enr.Status,
			EnrollmentDate:   enr.EnrollmentDate,
			ProgressSummary: ProgressSummary{
				CompletionPercentage: round2(percent(completed, total)),
				CompletedTasks:       completed,
				TotalTasks:           total,
			},
			AssessmentPerformance: AssessmentPerformance{
				AverageQuizScore: round2(mean(scores)),
				QuizAttempts:     len(scores),
			},
			RecentActivity: recentActivity(rows, studentRecentActivities),
			LastAccess:     lastAccess(rows),
		})
	}

	stats.OverallCompletion = round2(percent(stats.TotalTasksCompleted, stats.TotalTasks))
	stats.AverageQuizScore = round2(mean(submittedScores(attempts)))

	sort.SliceStable(report.Courses, func(i, j int) bool {
		return report.Courses[i].EnrollmentDate.After(report.Courses[j].EnrollmentDate)
	})
	return report
}

// BuildTaskAnalytics aggregates every task of a course, weakest completion rate first.
func BuildTaskAnalytics(
	tasks []course.Task,
	progressRows []ProgressRow,
	attempts []AttemptRow,
	questions []QuestionStat,
) []TaskAnalytics {
	rowsByTask := make(map[string][]ProgressRow)
	for _, row := range progressRows {
		rowsByTask[row.TaskID] = append(rowsByTask[row.TaskID], row)
	}
	attemptsByQuiz := make(map[string][]AttemptRow)
	for _, att := range attempts {
		attemptsByQuiz[att.QuizID] = append(attemptsByQuiz[att.QuizID], att)
	}
	questionsByQuiz := make(map[string][]QuestionStat)
	for _, q := range questions {
		questionsByQuiz[q.QuizID] = append(questionsByQuiz[q.QuizID], q)
	}

	report := make([]TaskAnalytics, 0, len(tasks))
	for _, t := range tasks {
		rows := rowsByTask[t.ID]
		var cs CompletionStats
		cs.TotalStudents = len(rows)

		var hours []float64
		for _, row := range rows {
			switch row.Status {
			case progress.StatusCompleted:
				cs.Completed++
				if row.StartDate.Valid && row.CompletionDate.Valid {
					hours = append(hours, row.CompletionDate.Time.Sub(row.StartDate.Time).Hours())
				}
			case progress.StatusInProgress:
				cs.InProgress++
			case progress.StatusNotStarted:
				cs.NotStarted++
			}
		}
		rate := percent(cs.Completed, cs.TotalStudents)
		cs.CompletionRate = round2(rate)
		if len(hours) > 0 {
			cs.AvgCompletionTimeHours = null.Float64From(round2(mean(hours)))
		}

		da := DifficultyAssessment{EstimatedDifficulty: Difficulty(rate)}
		if cs.Completed > 0 {
			da.AvgAttemptsToComplete = null.Float64From(round2(float64(cs.TotalStudents) / float64(cs.Completed)))
		}

		ta := TaskAnalytics{
			TaskID:               t.ID,
			Title:                t.Title,
			Type:                 t.Type,
			CompletionStats:      cs,
			DifficultyAssessment: da,
		}
		if t.IsQuiz() {
			ta.QuizAnalysis = buildQuizAnalysis(attemptsByQuiz[t.ID], questionsByQuiz[t.ID])
		}
		report = append(report, ta)
	}

	sort.SliceStable(report, func(i, j int) bool {
		return report[i].CompletionStats.CompletionRate < report[j].CompletionStats.CompletionRate
	})
	return report
}

func buildQuizAnalysis(attempts []AttemptRow, questions []QuestionStat) *QuizAnalysis {
	scores := submittedScores(attempts)
	qa := &QuizAnalysis{
		AverageScore:     round2(mean(scores)),
		TotalAttempts:    len(scores),
		QuestionAnalysis: make([]QuestionAnalysis, 0, len(questions)),
	}
	for _, q := range questions {
		qa.QuestionAnalysis = append(qa.QuestionAnalysis, QuestionAnalysis{
			QuestionID:     q.QuestionID,
			Text:           q.Text,
			SuccessRate:    round2(percent(q.CorrectResponses, q.TotalResponses)),
			TotalResponses: q.TotalResponses,
		})
	}
	sort.SliceStable(qa.QuestionAnalysis, func(i, j int) bool {
		return qa.QuestionAnalysis[i].SuccessRate < qa.QuestionAnalysis[j].SuccessRate
	})
	return qa
}

// ZeroQuizPerformance is the report of a user without submitted attempts.
func ZeroQuizPerformance(info user.Info) QuizPerformance {
	return QuizPerformance{
		UserInfo:              info,
		CourseBreakdown:       []CourseQuizStats{},
		RecentAttempts:        []RecentAttempt{},
		PerformanceByCategory: []CategoryPerformance{},
	}
}

// BuildQuizPerformance aggregates the submitted attempts of a user and the responses given during them.
func BuildQuizPerformance(info user.Info, attempts []AttemptRow, responses []ResponseRow) QuizPerformance {
	submitted := make([]AttemptRow, 0, len(attempts))
	for _, att := range attempts {
		if att.IsSubmitted {
			submitted = append(submitted, att)
		}
	}
	if len(submitted) == 0 {
		return ZeroQuizPerformance(info)
	}

	report := QuizPerformance{UserInfo: info}

	scores := make([]float64, 0, len(submitted))
	stats := &report.OverallStats
	stats.TotalAttempts = len(submitted)
	for _, att := range submitted {
		scores = append(scores, att.Score)
		if att.Score >= passingScore {
			stats.QuizzesPassed++
		} else {
			stats.QuizzesFailed++
		}
	}
	stats.AverageScore = round2(mean(scores))
	stats.PassRate = round2(percent(stats.QuizzesPassed, stats.TotalAttempts))

	report.CourseBreakdown = buildCourseBreakdown(submitted)
	report.RecentAttempts = buildRecentAttempts(submitted)
	report.PerformanceByCategory = buildCategoryPerformance(responses)
	return report
}

func buildCourseBreakdown(attempts []AttemptRow) []CourseQuizStats {
	type group struct {
		stats   CourseQuizStats
		quizzes map[string]struct{}
		scores  []float64
	}
	var order []string
	groups := make(map[string]*group)
	for _, att := range attempts {
		g, ok := groups[att.CourseID]
		if !ok {
			g = &group{
				stats:   CourseQuizStats{CourseID: att.CourseID, CourseTitle: att.CourseTitle, HighestScore: att.Score, LowestScore: att.Score},
				quizzes: make(map[string]struct{}),
			}
			groups[att.CourseID] = g
			order = append(order, att.CourseID)
		}
		g.quizzes[att.QuizID] = struct{}{}
		g.scores = append(g.scores, att.Score)
		if att.Score > g.stats.HighestScore {
			g.stats.HighestScore = att.Score
		}
		if att.Score < g.stats.LowestScore {
			g.stats.LowestScore = att.Score
		}
	}

	breakdown := make([]CourseQuizStats, 0, len(order))
	for _, cid := range order {
		g := groups[cid]
		g.stats.TotalQuizzes = len(g.quizzes)
		g.stats.TotalAttempts = len(g.scores)
		g.stats.AverageScore = round2(mean(g.scores))
		g.stats.HighestScore = round2(g.stats.HighestScore)
		g.stats.LowestScore = round2(g.stats.LowestScore)
		breakdown = append(breakdown, g.stats)
	}
	sort.SliceStable(breakdown, func(i, j int) bool { return breakdown[i].AverageScore > breakdown[j].AverageScore })
	return breakdown
}

func buildRecentAttempts(attempts []AttemptRow) []RecentAttempt {
	sorted := make([]AttemptRow, len(attempts))
	copy(sorted, attempts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SubmissionDate.Time.After(sorted[j].SubmissionDate.Time)
	})
	if len(sorted) > recentAttempts {
		sorted = sorted[:recentAttempts]
	}

	recent := make([]RecentAttempt, 0, len(sorted))
	for _, att := range sorted {
		ra := RecentAttempt{
			AttemptID:      att.ID,
			QuizID:         att.QuizID,
			QuizTitle:      att.QuizTitle,
			CourseTitle:    att.CourseTitle,
			Score:          round2(att.Score),
			CorrectAnswers: att.CorrectAnswers,
			TotalQuestions: att.TotalQuestions,
			SubmissionDate: att.SubmissionDate,
		}
		if !att.StartDate.IsZero() && att.SubmissionDate.Valid {
			ra.TimeSpent = null.StringFrom(elapsed(att.SubmissionDate.Time.Sub(att.StartDate)))
		}
		recent = append(recent, ra)
	}
	return recent
}

// buildCategoryPerformance groups responses by their question's category, or tag when it has none.
// Responses to questions with neither are skipped.
func buildCategoryPerformance(responses []ResponseRow) []CategoryPerformance {
	var order []string
	groups := make(map[string]*CategoryPerformance)
	for _, r := range responses {
		category := r.Category.String
		if !r.Category.Valid || category == "" {
			category = r.Tag.String
			if !r.Tag.Valid {
				category = ""
			}
		}
		if category == "" {
			continue
		}

		g, ok := groups[category]
		if !ok {
			g = &CategoryPerformance{Category: category}
			groups[category] = g
			order = append(order, category)
		}
		g.TotalQuestions++
		if r.IsCorrect {
			g.CorrectAnswers++
		}
	}

	perf := make([]CategoryPerformance, 0, len(order))
	for _, c := range order {
		g := groups[c]
		g.SuccessRate = round2(percent(g.CorrectAnswers, g.TotalQuestions))
		perf = append(perf, *g)
	}
	sort.SliceStable(perf, func(i, j int) bool { return perf[i].SuccessRate < perf[j].SuccessRate })
	return perf
}

// BuildInstructorDashboard summarizes the courses of an instructor.
func BuildInstructorDashboard(coursesCreated, studentsEnrolled int, recent []ProgressRow) InstructorDashboard {
	return InstructorDashboard{
		CoursesCreated:   coursesCreated,
		StudentsEnrolled: studentsEnrolled,
		RecentActivity:   recentActivity(recent, dashboardRecentActivities),
	}
}

// BuildAdminDashboard summarizes the whole platform.
func BuildAdminDashboard(stats PlatformStats) AdminDashboard {
	return AdminDashboard{
		TotalCompletedTasks:         stats.CompletedTasks,
		TotalTasks:                  stats.TotalTasks,
		OverallAverageScore:         round2(stats.AverageScore),
		OverallCompletionPercentage: round2(percent(stats.CompletedTasks, stats.TotalTasks)),
		TotalTimeSpent:              stats.TotalTimeSpent,
	}
}
