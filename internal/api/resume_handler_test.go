package api

import "testing"

func TestDownloadFilename(t *testing.T) {
	cases := map[string]string{
		"My Resume":        "My Resume.pdf",
		"":                 "resume.pdf",
		"   ":              "resume.pdf",
		"a/b\\c\"d":        "abcd.pdf",
		"产品经理简历":           "产品经理简历.pdf",
		"note\x00control:": "notecontrol:.pdf",
	}
	for title, want := range cases {
		if got := downloadFilename(title); got != want {
			t.Errorf("downloadFilename(%q) = %q, want %q", title, got, want)
		}
	}
}
