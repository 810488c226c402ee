package pms

import "strings"

// TaskStatus is a kanban column.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "Todo"
	StatusInProgress TaskStatus = "In Progress"
	StatusDone       TaskStatus = "Done"
)

// Columns lists the board columns in display order.
var Columns = []TaskStatus{StatusTodo, StatusInProgress, StatusDone}

// ParseStatus accepts the column name or its slug ("todo", "in-progress", "done").
func ParseStatus(raw string) (TaskStatus, bool) {
	for _, s := range Columns {
		if strings.EqualFold(raw, string(s)) || strings.EqualFold(raw, s.Slug()) {
			return s, true
		}
	}
	return "", false
}

// Slug is the URL form of the status.
func (s TaskStatus) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(s)), " ", "-")
}

type DemoProject struct {
	ID    string
	Name  string
	Emoji string
}

// Icon returns the emoji or the folder fallback
func (p DemoProject) Icon() string {
	if p.Emoji == "" {
		return "📁"
	}
	return p.Emoji
}

type DemoTask struct {
	ID        string
	Title     string
	ProjectID string
	Status    TaskStatus
	Due       string
	Assignee  string
}

var demoProjects = []DemoProject{
	{ID: "p1", Name: "PMS Core", Emoji: "🧩"},
	{ID: "p2", Name: "UI Bench", Emoji: "🎨"},
	{ID: "p3", Name: "DB Design", Emoji: "🗃️"},
}

var demoTasks = []DemoTask{
	{ID: "t1", Title: "Space/Project 구조 확정", ProjectID: "p3", Status: StatusTodo, Due: "오늘"},
	{ID: "t2", Title: "Asana 스타일 Sidebar 만들기", ProjectID: "p2", Status: StatusInProgress, Due: "내일"},
	{ID: "t3", Title: "로그인 흐름 마무리", ProjectID: "p1", Status: StatusDone},
	{ID: "t4", Title: "Task/Subtask ERD 정리", ProjectID: "p3", Status: StatusTodo},
}

// Board is a read-only view over the demo projects and tasks.
type Board struct {
	projects []DemoProject
	tasks    []DemoTask
}

func NewDemoBoard() *Board {
	return NewBoard(demoProjects, demoTasks)
}

func NewBoard(projects []DemoProject, tasks []DemoTask) *Board {
	return &Board{projects: projects, tasks: tasks}
}

func (b *Board) Projects() []DemoProject {
	return append([]DemoProject(nil), b.projects...)
}

// Project finds a project by id, falling back to the first project.
func (b *Board) Project(id string) (DemoProject, bool) {
	for _, p := range b.projects {
		if p.ID == id {
			return p, true
		}
	}
	if len(b.projects) == 0 {
		return DemoProject{}, false
	}
	return b.projects[0], false
}

// Column is one status lane of the filtered board.
type Column struct {
	Status TaskStatus
	Tasks  []DemoTask
}

func (c Column) Count() int {
	return len(c.Tasks)
}

// Columns returns the tasks of projectID whose title contains query
// (case-insensitive), grouped by status.
func (b *Board) Columns(projectID, query string) []Column {
	q := strings.ToLower(strings.TrimSpace(query))

	cols := make([]Column, 0, len(Columns))
	for _, status := range Columns {
		col := Column{Status: status, Tasks: []DemoTask{}}
		for _, t := range b.tasks {
			if t.ProjectID != projectID || t.Status != status {
				continue
			}
			if q != "" && !strings.Contains(strings.ToLower(t.Title), q) {
				continue
			}
			col.Tasks = append(col.Tasks, t)
		}
		cols = append(cols, col)
	}
	return cols
}
