// Package pms holds the sign-in and board core of the PMS web app: the
// identity source and its session observer, the navigation guard, the
// login/signup forms, the account directory, and the demo board data.
//
// Sessions:
//   - AuthClient is the IdentitySource of one client. It owns the current
//     Session and notifies subscribers whenever a user signs in or out.
//   - SessionObserver subscribes once and keeps the latest session. Until the
//     first notification arrives it reports Determining, and views render
//     nothing that depends on the session.
//   - TokenService carries a Session between requests as an HS256 JWT.
//
// Navigation:
//   - Guard runs an action when a session is present, otherwise it redirects
//     to /login with a NavigationState recording where the user came from.
//   - CredentialForm reads that state once when the view opens and returns
//     there after a successful sign-in.
//
// Submissions:
//   - Each form holds a Latch so a double submission makes one provider call.
//   - Provider calls run under DefaultProviderTimeout; expiry surfaces as a
//     go-errors Error with text code CodeTimeout. A call that outlives its
//     timeout never stores a session.
//   - A signup that fails after the account was created still signs out.
//   - Failures map to MessageKeys via LoginMessage and SignupMessage and are
//     rendered by a Localizer (Korean by default, English available).
//
// Errors are github.com/goliatone/go-errors values. Provider failures keep
// their auth/ code as the TextCode; form validation uses CategoryValidation.
package pms
