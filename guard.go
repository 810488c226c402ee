package pms

// Guard runs action when session is present. Otherwise it leaves action
// untouched and sends the router to the login view, remembering where the
// user was so login can bring them back.
func Guard(session *Session, nav Navigator, action func() error) error {
	if session.Present() {
		return action()
	}

	return nav.Navigate(RouteLogin, NavigateOptions{
		State: &NavigationState{
			From:   nav.Location().Path,
			Notice: NoticeSignInRequired,
		},
	})
}
