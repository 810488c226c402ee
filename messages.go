package pms

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MessageKey identifies a user-facing message in the catalog.
type MessageKey string

const (
	MsgEnterCredentials  MessageKey = "form.enter_credentials"
	MsgInvalidEmail      MessageKey = "auth.invalid_email"
	MsgUserNotFound      MessageKey = "auth.user_not_found"
	MsgWrongPassword     MessageKey = "auth.wrong_password"
	MsgLoginFailed       MessageKey = "auth.login_failed"
	MsgEmailInUse        MessageKey = "auth.email_in_use"
	MsgWeakPassword      MessageKey = "auth.weak_password"
	MsgSignupFailed      MessageKey = "auth.signup_failed"
	MsgGoogleFailed      MessageKey = "auth.google_failed"
	MsgTimeout           MessageKey = "auth.timeout"
	MsgBusy              MessageKey = "form.busy"
	MsgTooManyAttempts   MessageKey = "form.too_many_attempts"
	NoticeSignupComplete MessageKey = "notice.signup_complete"
	NoticeSignInRequired MessageKey = "notice.sign_in_required"
	NoticeTaskCreateSoon MessageKey = "notice.task_create_soon"
	NoticeTaskAddSoon    MessageKey = "notice.task_add_soon"

	LabelTagline     MessageKey = "label.tagline"
	LabelEmail       MessageKey = "label.email"
	LabelPassword    MessageKey = "label.password"
	LabelLogin       MessageKey = "label.login"
	LabelSignup      MessageKey = "label.signup"
	LabelLogout      MessageKey = "label.logout"
	LabelGoogle      MessageKey = "label.google"
	LabelNoAccount   MessageKey = "label.no_account"
	LabelHaveAccount MessageKey = "label.have_account"
	LabelBoardIntro  MessageKey = "label.board_intro"
	LabelServerError MessageKey = "label.server_error"
)

// Languages the catalog ships with; the first one is the default.
var Languages = []language.Tag{language.Korean, language.English}

var catalog = map[language.Tag]map[MessageKey]string{
	language.Korean: {
		MsgEnterCredentials:  "이메일/비밀번호를 입력해주세요.",
		MsgInvalidEmail:      "이메일 형식이 올바르지 않아요.",
		MsgUserNotFound:      "해당 이메일 계정이 없어요.",
		MsgWrongPassword:     "비밀번호가 올바르지 않아요.",
		MsgLoginFailed:       "로그인에 실패했어요. 잠시 후 다시 시도해주세요.",
		MsgEmailInUse:        "이미 가입된 이메일이에요.",
		MsgWeakPassword:      "비밀번호가 너무 약해요. (6자 이상)",
		MsgSignupFailed:      "회원가입에 실패했어요. 잠시 후 다시 시도해주세요.",
		MsgGoogleFailed:      "Google 로그인에 실패했어요. 잠시 후 다시 시도해주세요.",
		MsgTimeout:           "응답이 너무 늦어요. 잠시 후 다시 시도해주세요.",
		MsgBusy:              "처리 중...",
		MsgTooManyAttempts:   "요청이 너무 많아요. 잠시 후 다시 시도해주세요.",
		NoticeSignupComplete: "회원가입이 완료되었습니다! 로그인 해주세요.",
		NoticeSignInRequired: "로그인이 필요한 기능이에요.",
		NoticeTaskCreateSoon: "추후: Task 생성 모달",
		NoticeTaskAddSoon:    "추후: %s에 task 추가",
		LabelTagline:         "Work, organized. Simple.",
		LabelEmail:           "이메일",
		LabelPassword:        "비밀번호",
		LabelLogin:           "로그인",
		LabelSignup:          "회원가입",
		LabelLogout:          "로그아웃",
		LabelGoogle:          "Google로 계속하기",
		LabelNoAccount:       "계정이 없나요?",
		LabelHaveAccount:     "이미 계정이 있나요?",
		LabelBoardIntro:      "Asana 느낌의 기본 홈(데모 데이터). 다음은 API/DB 연동하면 됨.",
		LabelServerError:     "문제가 발생했어요. 잠시 후 다시 시도해주세요.",
	},
	language.English: {
		MsgEnterCredentials:  "Please enter your email and password.",
		MsgInvalidEmail:      "That email address is not valid.",
		MsgUserNotFound:      "There is no account with that email.",
		MsgWrongPassword:     "The password is incorrect.",
		MsgLoginFailed:       "Sign-in failed. Please try again shortly.",
		MsgEmailInUse:        "That email is already registered.",
		MsgWeakPassword:      "The password is too weak (6+ characters).",
		MsgSignupFailed:      "Sign-up failed. Please try again shortly.",
		MsgGoogleFailed:      "Google sign-in failed. Please try again shortly.",
		MsgTimeout:           "The sign-in service took too long. Please try again.",
		MsgBusy:              "Working...",
		MsgTooManyAttempts:   "Too many attempts. Please try again shortly.",
		NoticeSignupComplete: "Sign-up complete! Please sign in.",
		NoticeSignInRequired: "Sign-in required to use this.",
		NoticeTaskCreateSoon: "Coming soon: new task dialog",
		NoticeTaskAddSoon:    "Coming soon: add a task to %s",
		LabelTagline:         "Work, organized. Simple.",
		LabelEmail:           "Email",
		LabelPassword:        "Password",
		LabelLogin:           "Sign in",
		LabelSignup:          "Sign up",
		LabelLogout:          "Sign out",
		LabelGoogle:          "Continue with Google",
		LabelNoAccount:       "No account yet?",
		LabelHaveAccount:     "Already have an account?",
		LabelBoardIntro:      "A basic Asana-style home with demo data.",
		LabelServerError:     "Something went wrong. Please try again shortly.",
	},
}

func init() {
	for tag, entries := range catalog {
		for key, msg := range entries {
			if err := message.SetString(tag, string(key), msg); err != nil {
				panic(err)
			}
		}
	}
}

var matcher = language.NewMatcher(Languages)

// Localizer renders catalog messages for one language.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewLocalizer returns a localizer for the closest supported tag.
func NewLocalizer(tag language.Tag) *Localizer {
	_, idx, _ := matcher.Match(tag)
	best := Languages[idx]
	return &Localizer{
		tag:     best,
		printer: message.NewPrinter(best),
	}
}

// ParseLanguage matches a raw tag or Accept-Language header value against
// the supported languages.
func ParseLanguage(raw string) (language.Tag, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Languages[0], false
	}

	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return Languages[0], false
	}

	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Languages[0], false
	}
	return Languages[idx], true
}

func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// T renders key with optional arguments.
func (l *Localizer) T(key MessageKey, args ...any) string {
	if key == "" {
		return ""
	}
	return l.printer.Sprintf(string(key), args...)
}
