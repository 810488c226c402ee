package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/pmsworks/pms"
)

type projectView struct {
	ID     string
	Name   string
	Icon   string
	Active bool
}

type taskView struct {
	Title    string
	Due      string
	Assignee string
}

type columnView struct {
	Title string
	Slug  string
	Count int
	Tasks []taskView
}

type userView struct {
	Name    string
	Email   string
	Initial string
}

func newColumnView(col pms.Column) columnView {
	tasks := make([]taskView, 0, col.Count())
	for _, t := range col.Tasks {
		tv := taskView{Title: t.Title, Due: t.Due, Assignee: t.Assignee}
		if tv.Due == "" {
			tv.Due = "No due"
		}
		if tv.Assignee == "" {
			tv.Assignee = "Unassigned"
		}
		tasks = append(tasks, tv)
	}
	return columnView{
		Title: string(col.Status),
		Slug:  col.Status.Slug(),
		Count: col.Count(),
		Tasks: tasks,
	}
}

func newUserView(s *pms.Session) userView {
	return userView{
		Name:    s.Name(),
		Email:   s.Email,
		Initial: s.Initial(),
	}
}

func notice(loc *pms.Localizer, state *pms.NavigationState) string {
	if state == nil || state.Notice == "" {
		return ""
	}
	if state.Detail != "" {
		return loc.T(state.Notice, state.Detail)
	}
	return loc.T(state.Notice)
}

// viewData adds the language and the localized labels every view uses.
// The django engine binds fiber.Map but not other named map types.
func (h *Handlers) viewData(loc *pms.Localizer, data router.ViewContext) fiber.Map {
	data["lang"] = loc.Tag().String()
	data["L"] = map[string]string{
		"tagline":      loc.T(pms.LabelTagline),
		"email":        loc.T(pms.LabelEmail),
		"password":     loc.T(pms.LabelPassword),
		"login":        loc.T(pms.LabelLogin),
		"signup":       loc.T(pms.LabelSignup),
		"logout":       loc.T(pms.LabelLogout),
		"google":       loc.T(pms.LabelGoogle),
		"no_account":   loc.T(pms.LabelNoAccount),
		"have_account": loc.T(pms.LabelHaveAccount),
		"board_intro":  loc.T(pms.LabelBoardIntro),
	}
	return fiber.Map(data)
}
