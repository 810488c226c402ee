package pms_test

import (
	"testing"

	"github.com/pmsworks/pms"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestLocalizer_T(t *testing.T) {
	ko := pms.NewLocalizer(language.Korean)
	en := pms.NewLocalizer(language.English)

	assert.Equal(t, "비밀번호가 올바르지 않아요.", ko.T(pms.MsgWrongPassword))
	assert.Equal(t, "The password is incorrect.", en.T(pms.MsgWrongPassword))
	assert.Equal(t, "추후: Done에 task 추가", ko.T(pms.NoticeTaskAddSoon, "Done"))
	assert.Equal(t, "", en.T(""))
}

func TestLocalizer_FallsBackToDefault(t *testing.T) {
	l := pms.NewLocalizer(language.Japanese)
	assert.Equal(t, language.Korean, l.Tag())
}

func TestParseLanguage(t *testing.T) {
	cases := []struct {
		raw  string
		want language.Tag
		ok   bool
	}{
		{"", language.Korean, false},
		{"en", language.English, true},
		{"en-US,en;q=0.9", language.English, true},
		{"ko-KR", language.Korean, true},
		{"not a tag;;", language.Korean, false},
	}

	for _, tc := range cases {
		got, ok := pms.ParseLanguage(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}
